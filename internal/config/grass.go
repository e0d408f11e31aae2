package config

// GrassConfig configures the GRASS session modules run in.
type GrassConfig struct {
	// Launcher is prepended to every module invocation, e.g.
	// ["grass", "/data/grassdata/nc_spm/user1", "--exec"].
	// Empty means modules are run directly from PATH inside an existing session.
	Launcher []string `yaml:"launcher"`

	GISBase string `yaml:"gisbase"`
	GISRC   string `yaml:"gisrc"`

	// TempPrefix prefixes every temporary raster; the run id is appended.
	TempPrefix string `yaml:"temp_prefix"`

	// CellType of the imported slice raster.
	CellType string `yaml:"cell_type"`

	// Quiet passes --quiet to modules.
	Quiet bool `yaml:"quiet"`

	// CleanupTimeout bounds the removal of temporary rasters after a run,
	// including after an interrupt.
	CleanupTimeout string `yaml:"cleanup_timeout"`
}
