package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("GISBASE and GISRC populate the grass session", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GISBASE", "/usr/lib/grass84")
		t.Setenv("GISRC", "/tmp/grass8-user-1234/gisrc")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/usr/lib/grass84", cfg.Grass.GISBase)
		assert.Equal(t, "/tmp/grass8-user-1234/gisrc", cfg.Grass.GISRC)
	})

	t.Run("R3SLICE_MODE is case-insensitive", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("R3SLICE_MODE", "Docker")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, ModeDocker, cfg.Execution.Mode)
	})

	t.Run("R3SLICE_LEDGER enables the ledger", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("R3SLICE_LEDGER", "/var/lib/r3slice/runs.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Ledger.Enabled)
		assert.Equal(t, "/var/lib/r3slice/runs.db", cfg.Ledger.Path)
	})

	t.Run("empty variables leave defaults alone", func(t *testing.T) {
		clearEnv(t)

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("log level and docker image", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("R3SLICE_LOG_LEVEL", "debug")
		t.Setenv("R3SLICE_DOCKER_IMAGE", "osgeo/grass-gis:8.3")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "osgeo/grass-gis:8.3", cfg.Execution.Docker.Image)
	})
}
