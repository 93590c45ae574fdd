package config

import (
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

func TestLoadPathDefaults(t *testing.T) {
	cfg, err := LoadPath(writeConfig(t, "env: dev\n"))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Rooms.TTL)
	assert.Equal(t, 5, cfg.Rooms.CodeAttempts)
	assert.Equal(t, "meet:", cfg.Storage.Redis.Prefix)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.WebRTC.STUNServers)
	assert.NotEmpty(t, cfg.HTTP.SessionSecret)
}

func TestLoadPathValues(t *testing.T) {
	cfg, err := LoadPath(writeConfig(t, `
env: prod
http:
  address: ":9000"
  session_secret: "s3cret"
rooms:
  ttl: 30m
storage:
  driver: redis
  redis:
    addr: "redis:6379"
    prefix: "x:"
ratelimit:
  join_per_minute: 5
  burst: 2
`))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, "s3cret", cfg.HTTP.SessionSecret)
	assert.Equal(t, 30*time.Minute, cfg.Rooms.TTL)
	assert.Equal(t, StorageRedis, cfg.Storage.Driver)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, "x:", cfg.Storage.Redis.Prefix)
	assert.Equal(t, 5, cfg.RateLimit.JoinPerMinute)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
}

func TestLoadPathEnvOverride(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://meet@localhost/meet")

	cfg, err := LoadPath(writeConfig(t, "env: local\n"))
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://meet@localhost/meet", cfg.Storage.Postgres.DSN)
}

func TestLoadPathMissing(t *testing.T) {
	_, err := LoadPath(filepath.Join(t.TempDir(), "nope.yaml"))
	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)

	assert.Panics(t, func() { MustLoadPath(pathErr.Path) })
}
