package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 8100, cfg.API.Port)
	assert.Equal(t, 15*time.Second, cfg.Remote.Timeout)
	assert.False(t, cfg.Registration.Enabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
environment: production
db:
  driver: Postgres
  dsn: postgres://u:p@localhost/db
api:
  port: 9000
remote:
  timeout: 3s
registration:
  enabled: true
  db_path: /tmp/bach.db
auth:
  issuer: https://id.example.com/oauth2/default/
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("N8NMGR_API_PORT", "9100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 9100, cfg.API.Port)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.True(t, cfg.Registration.Enabled)
	assert.Equal(t, "/tmp/bach.db", cfg.Registration.DBPath)
	assert.Equal(t, "https://id.example.com/oauth2/default", cfg.Auth.Issuer)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
