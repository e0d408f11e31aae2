package tactile

import "time"

// Config holds executor-wide defaults.
type Config struct {
	WorkingDir string

	DefaultTimeout time.Duration

	// MaxTimeout caps every per-command timeout.
	MaxTimeout time.Duration

	// AllowedEnvironment names host variables passed through to commands.
	AllowedEnvironment []string

	// Environment (KEY=VALUE) is added to every command.
	Environment []string

	// Sandbox applies to commands without their own. A docker sandbox makes
	// New return a DockerExecutor.
	Sandbox *SandboxConfig

	MaxOutputBytes int64
	MaxMemoryBytes int64

	// ResourceUsage enables rusage collection for direct executions.
	ResourceUsage bool
}

// DefaultConfig returns the defaults used for GRASS modules.
func DefaultConfig() Config {
	return Config{
		WorkingDir:         ".",
		DefaultTimeout:     10 * time.Minute,
		MaxTimeout:         2 * time.Hour,
		MaxOutputBytes:     64 << 20, // profiles of large volumes are long
		AllowedEnvironment: []string{"PATH", "HOME", "USER", "LANG", "LC_ALL", "GISBASE", "GISRC", "LD_LIBRARY_PATH"},
		ResourceUsage:      true,
	}
}

// Merge fills the unset parts of cmd from c. The caller's Limits and the
// config's Sandbox are copied, never shared.
func (c Config) Merge(cmd Command) Command {
	out := cmd
	if out.WorkingDirectory == "" {
		out.WorkingDirectory = c.WorkingDir
	}

	limits := ResourceLimits{}
	if cmd.Limits != nil {
		limits = *cmd.Limits
	}
	if limits.TimeoutMs == 0 {
		limits.TimeoutMs = c.DefaultTimeout.Milliseconds()
	}
	if c.MaxTimeout > 0 && limits.TimeoutMs > c.MaxTimeout.Milliseconds() {
		limits.TimeoutMs = c.MaxTimeout.Milliseconds()
	}
	if limits.MaxOutputBytes == 0 {
		limits.MaxOutputBytes = c.MaxOutputBytes
	}
	if limits.MaxMemoryBytes == 0 {
		limits.MaxMemoryBytes = c.MaxMemoryBytes
	}
	out.Limits = &limits

	if out.Sandbox == nil && c.Sandbox != nil {
		sb := *c.Sandbox
		out.Sandbox = &sb
	}
	return out
}
