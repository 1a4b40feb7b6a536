package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MONGO_URI", "DB_NAME", "STORE_DRIVER", "PORT", "FRONTEND_ORIGIN"} {
		t.Setenv(key, "")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "scoreboard", cfg.Mongo.Database)
	assert.Equal(t, "scores", cfg.Mongo.Collection)
	assert.Equal(t, 10, cfg.Leaderboard.Limit)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.Server.AllowedOrigins)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_REDIS_ADDR", "cache:6380")
	path := writeConfig(t, "store:\n  driver: redis\nredis:\n  addr: ${TEST_REDIS_ADDR}\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("DB_NAME", "game")
	t.Setenv("PORT", "8123")
	t.Setenv("FRONTEND_ORIGIN", "https://game.example.com, https://www.game.example.com")
	path := writeConfig(t, "mongo:\n  uri: mongodb://ignored\nserver:\n  allowed_origins: [\"http://localhost:3000\"]\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "game", cfg.Mongo.Database)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, []string{
		"http://localhost:3000",
		"https://game.example.com",
		"https://www.game.example.com",
	}, cfg.Server.AllowedOrigins)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "store:\n  driver: cassandra\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()

	assert.True(t, cfg.Broadcast.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfigAppendsFrontendOrigin(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRONTEND_ORIGIN", "https://game.example.com")

	cfg := DefaultConfig()
	assert.Equal(t, []string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
		"https://game.example.com",
	}, cfg.Server.AllowedOrigins)
}

func TestLoadAppendsFrontendOriginToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRONTEND_ORIGIN", "https://game.example.com")
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
		"https://game.example.com",
	}, cfg.Server.AllowedOrigins)
}

func TestGetEnvAsIntFallsBack(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 7, GetEnvAsInt("TEST_INT", 7))

	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, GetEnvAsInt("TEST_INT", 7))
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{}.SlogLevel())
}
