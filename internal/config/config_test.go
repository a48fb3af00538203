package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/reports.db", cfg.Store.Path)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 256, cfg.Cache.LRUSize)
	assert.False(t, cfg.Explain.Enabled)
	assert.Equal(t, "openai/gpt-oss-120b", cfg.Explain.Model)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, m.Validate())
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()

	cfg.Server.Port = -1
	assert.Error(t, m.Validate())
	cfg.Server.Port = 8080

	cfg.Store.Driver = "mongodb"
	assert.Error(t, m.Validate())
	cfg.Store.Driver = "postgres"
	cfg.Store.DSN = ""
	assert.Error(t, m.Validate())
	cfg.Store.DSN = "postgres://localhost/pgx"
	assert.NoError(t, m.Validate())

	cfg.Explain.Enabled = true
	cfg.Explain.APIKey = ""
	assert.Error(t, m.Validate())
	cfg.Explain.APIKey = "key"
	assert.NoError(t, m.Validate())

	cfg.Logging.Level = "loud"
	assert.Error(t, m.Validate())
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("PGX_SERVER_PORT", "9090")
	t.Setenv("PGX_LOGGING_LEVEL", "debug")

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
