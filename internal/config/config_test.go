package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = "/var/lib/corebank/corebank.db"
	cfg.Logging.Level = "debug"

	path := filepath.Join(t.TempDir(), "corebank.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/corebank/corebank.db", loaded.Database.Path)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corebank.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: {}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "corebank.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
