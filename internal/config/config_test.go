package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://dash@localhost/dash")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "Current User", cfg.CommentAuthor)
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"database_url: postgres://file/db\nhttp_addr: \":9000\"\nminio_endpoint: minio:9000\nminio_bucket: snapshots\n"), 0o600))
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://dash.local")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:3000", "http://dash.local"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.Storage.Enabled())
	assert.Equal(t, "snapshots", cfg.Storage.Bucket)
}
