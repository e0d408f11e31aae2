package config

// ExecutionConfig configures how GRASS modules are launched.
type ExecutionConfig struct {
	// Mode is "direct" (host GRASS session) or "docker".
	Mode string `yaml:"mode"`

	// Timeout for a single module invocation
	Timeout string `yaml:"timeout"`

	// Working directory
	WorkingDirectory string `yaml:"working_directory"`

	// Environment variables passed through to modules
	AllowedEnvVars []string `yaml:"allowed_env_vars"`

	// MaxOutputBytes caps captured stdout/stderr per module
	MaxOutputBytes int64 `yaml:"max_output_bytes"`

	Docker DockerConfig `yaml:"docker"`
}

// DockerConfig configures the docker execution mode.
type DockerConfig struct {
	Image string `yaml:"image"`

	// Mounts in host:container[:ro] form, typically the GIS database.
	Mounts []string `yaml:"mounts"`

	// User runs the container as user[:group].
	User string `yaml:"user"`

	// MaxMemoryBytes caps container memory (docker run --memory). 0 = no cap.
	MaxMemoryBytes int64 `yaml:"max_memory_bytes"`
}
