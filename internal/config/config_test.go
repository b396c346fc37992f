package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9901,
		"jwt_secret": "abc",
		"database": {"dsn": "postgres://localhost/app"},
		"file_store": {"type": "local", "data": {"dir": "/tmp/store"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 72, cfg.JWTTTLHours)
	require.Equal(t, "gemini", cfg.AI.Provider)
	require.Equal(t, 5, cfg.Pipeline.UploadWorkers)
	require.Equal(t, 3, cfg.Pipeline.ExtractionWorkers)
	require.Equal(t, 300, cfg.Pipeline.WaitCeilingSeconds)
	require.Equal(t, 2, cfg.Pipeline.PollSeconds)
	require.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	require.False(t, cfg.QualityCheck)
}

func TestLoadMissingRequired(t *testing.T) {
	path := writeConfig(t, `{"port": 9901}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/app")
	t.Setenv("JWT_SECRET", "env-secret")
	path := writeConfig(t, `{
		"port": 9901,
		"jwt_secret": "file-secret",
		"database": {"dsn": "postgres://file-host/app"},
		"file_store": {"type": "local", "data": {"dir": "/tmp/store"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://env-host/app", cfg.Database.DSN)
	require.Equal(t, "env-secret", cfg.JWTSecret)
}
