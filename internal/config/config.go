package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all r3slice configuration.
type Config struct {
	// GRASS session and module settings
	Grass GrassConfig `yaml:"grass"`

	// Execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Run ledger
	Ledger LedgerConfig `yaml:"ledger"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// Execution modes.
const (
	ModeDirect = "direct"
	ModeDocker = "docker"
)

// ValidModes lists all supported execution modes.
var ValidModes = []string{ModeDirect, ModeDocker}

// ValidCellTypes lists the raster cell types r.in.ascii accepts.
var ValidCellTypes = []string{"CELL", "FCELL", "DCELL"}

var mapNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Grass: GrassConfig{
			TempPrefix:     "r3_to_rast_tmp_",
			CellType:       "FCELL",
			Quiet:          true,
			CleanupTimeout: "2m",
		},

		Execution: ExecutionConfig{
			Mode:             ModeDirect,
			Timeout:          "10m",
			WorkingDirectory: ".",
			MaxOutputBytes:   64 * 1024 * 1024,
			AllowedEnvVars: []string{
				"PATH", "HOME", "USER", "LANG", "LC_ALL",
				"GISBASE", "GISRC", "GISDBASE", "GRASS_ADDON_BASE",
				"LD_LIBRARY_PATH", "DYLD_LIBRARY_PATH", "PYTHONPATH",
			},
			Docker: DockerConfig{
				Image: "osgeo/grass-gis:releasebranch_8_4-ubuntu",
			},
		},

		Ledger: LedgerConfig{
			Enabled: false,
			Path:    filepath.Join(".r3slice", "ledger.db"),
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the per-user config location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".r3slice", "config.yaml")
	}
	return filepath.Join(dir, "r3slice", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still honor the environment.
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GISBASE"); v != "" {
		c.Grass.GISBase = v
	}
	if v := os.Getenv("GISRC"); v != "" {
		c.Grass.GISRC = v
	}
	if v := os.Getenv("R3SLICE_MODE"); v != "" {
		c.Execution.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("R3SLICE_DOCKER_IMAGE"); v != "" {
		c.Execution.Docker.Image = v
	}
	if v := os.Getenv("R3SLICE_LEDGER"); v != "" {
		c.Ledger.Enabled = true
		c.Ledger.Path = v
	}
	if v := os.Getenv("R3SLICE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetExecutionTimeout returns the per-module timeout as a duration.
func (c *Config) GetExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// GetCleanupTimeout returns grass.cleanup_timeout, or 2m when unset.
func (c *Config) GetCleanupTimeout() time.Duration {
	d, err := time.ParseDuration(c.Grass.CleanupTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidModes, c.Execution.Mode) {
		return fmt.Errorf("invalid execution mode: %s (valid: %v)", c.Execution.Mode, ValidModes)
	}
	if c.Execution.Mode == ModeDocker && c.Execution.Docker.Image == "" {
		return fmt.Errorf("docker execution requires execution.docker.image")
	}
	if c.Execution.Docker.MaxMemoryBytes < 0 {
		return fmt.Errorf("invalid execution.docker.max_memory_bytes: %d", c.Execution.Docker.MaxMemoryBytes)
	}
	if c.Grass.CleanupTimeout != "" {
		if _, err := time.ParseDuration(c.Grass.CleanupTimeout); err != nil {
			return fmt.Errorf("invalid cleanup timeout %q: %w", c.Grass.CleanupTimeout, err)
		}
	}
	if c.Execution.Timeout != "" {
		if _, err := time.ParseDuration(c.Execution.Timeout); err != nil {
			return fmt.Errorf("invalid execution timeout %q: %w", c.Execution.Timeout, err)
		}
	}
	if !contains(ValidCellTypes, strings.ToUpper(c.Grass.CellType)) {
		return fmt.Errorf("invalid cell type: %s (valid: %v)", c.Grass.CellType, ValidCellTypes)
	}
	if !mapNamePattern.MatchString(c.Grass.TempPrefix) {
		return fmt.Errorf("invalid temp prefix %q: must start with a letter and contain only letters, digits and underscores", c.Grass.TempPrefix)
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger enabled without a path")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
