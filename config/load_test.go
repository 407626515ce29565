package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qafax/qafax/errors"
)

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	assert.Equal(t, "qafax.db", v.GetString("database.path"))
	assert.Equal(t, "config", v.GetString("configs.root"))
	assert.Equal(t, "artifacts", v.GetString("output.dir"))
	assert.Equal(t, 4, v.GetInt("verify.workers"))
	assert.Equal(t, 0.6, v.GetFloat64("verify.low_confidence_threshold"))
	assert.Equal(t, 8087, v.GetInt("server.port"))
	assert.Equal(t, "*", v.GetString("ingest.pattern"))
	assert.Equal(t, 3, v.GetInt("ingest.stable_polls"))
	assert.Equal(t, 1.0, v.GetFloat64("ingest.interval_sec"))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qafax.toml")
	content := `
[database]
path = "/var/lib/qafax/runs.db"

[verify]
workers = 8

[ingest]
pattern = "*.tif"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/qafax/runs.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Verify.Workers)
	assert.Equal(t, "*.tif", cfg.Ingest.Pattern)

	// Unset keys keep their defaults.
	assert.Equal(t, "config", cfg.Configs.Root)
	assert.Equal(t, 0.6, cfg.Verify.LowConfidenceThreshold)
	assert.Equal(t, 8087, cfg.Server.Port)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfigError(err))
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qafax.toml")
	require.NoError(t, os.WriteFile(path, []byte("[database\npath ="), 0o644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfigError(err))
}
