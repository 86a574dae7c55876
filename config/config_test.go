package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "habits.db", cfg.SQLitePath)
	assert.Equal(t, 72, cfg.SessionTTLHours)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `{
		"app": {"AppPort": "9000", "JWTSecret": "from-file", "AllowedOrigins": ["https://a.example"]},
		"database": {"Driver": "sqlite", "SQLitePath": "/tmp/h.db"},
		"redis": {"RedisHost": "cache", "RedisPort": 6380},
		"log": {"Level": "debug", "Compress": true}
	}`)

	t.Run("file values apply", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.AppPort)
		assert.Equal(t, "from-file", cfg.JWTSecret)
		assert.Equal(t, "/tmp/h.db", cfg.SQLitePath)
		assert.Equal(t, []string{"https://a.example"}, cfg.AllowedOrigins)
		assert.Equal(t, 6380, cfg.RedisPort)
		assert.True(t, cfg.RedisEnabled())
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.True(t, cfg.LogCompress)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "from-env")
		t.Setenv("APP_PORT", "7000")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://b.example, https://c.example ,")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.JWTSecret)
		assert.Equal(t, "7000", cfg.AppPort)
		assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.AllowedOrigins)
	})
}

func TestLoad_InvalidInput(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		_, err := Load(writeConfig(t, `{"app": `))
		require.Error(t, err)
	})

	t.Run("bad integer env", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("REDIS_PORT", "six")
		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_PORT")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("DB_DRIVER", "oracle")
		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_foreign_keys=on", sqliteDSN(MemorySQLite))
	assert.Equal(t, "habits.db?_foreign_keys=on", sqliteDSN("habits.db"))
	assert.Equal(t, "file:h.db?cache=shared&_foreign_keys=on", sqliteDSN("file:h.db?cache=shared"))
	assert.Equal(t, "h.db?_fk=1", sqliteDSN("h.db?_fk=1"))
}

func TestToGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, toGormLogLevel("debug"))
	assert.Equal(t, logger.Warn, toGormLogLevel(""))
	assert.Equal(t, logger.Silent, toGormLogLevel("silent"))
	assert.Equal(t, logger.Error, toGormLogLevel("error"))
}

func TestOpenDatabase_Memory(t *testing.T) {
	db, err := OpenDatabase(AppConfig{DBDriver: "sqlite", SQLitePath: MemorySQLite, LogLevel: "silent"})
	require.NoError(t, err)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "example")

	cfg, err := Load("config.example.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, "logs/app.log", cfg.LogPath)
	assert.False(t, cfg.RedisEnabled())
}
