package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.WebSocket.Address)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, "https://api.scryfall.com", cfg.Scryfall.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Scryfall.CacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  websocket:
    address: ":9999"
storage:
  driver: memory
scryfall:
  cache_ttl: 1h
  max_concurrent: 3
logging:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.WebSocket.Address)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.Scryfall.CacheTTL)
	assert.Equal(t, 3, cfg.Scryfall.MaxConcurrent)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: sqlite\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")
}
