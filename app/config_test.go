package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for one test; envconfig treats a set-but-empty
// variable as a value and skips the default.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "STORE_DRIVER", "CORS_ORIGINS", "RP_ORIGINS", "PORT", "SESSION_TTL", "UPLOAD_FOLDER", "DB_NAME")
	t.Setenv("WEB_ORIGIN", "http://localhost:5173")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "static/uploads", cfg.UploadFolder)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.RPOrigins)
	assert.Contains(t, cfg.SQLDSN(), "dbname=lend_tool")
}

func TestLoadConfigFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte(
		"STORE_DRIVER=SQLite\nSQLITE_PATH=/tmp/x.db\nCORS_ORIGINS= https://a.test , https://b.test\nSESSION_TTL=2h\n",
	), 0o600))
	unsetEnv(t, "STORE_DRIVER", "SQLITE_PATH", "CORS_ORIGINS", "SESSION_TTL")

	cfg, err := LoadConfig(env)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLDSN())
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "STORE_DRIVER")
}
