package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/taskhub/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogEncoding)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, 50, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.internal:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.Equal(t, "/etc/taskhub/catalog.json", cfg.Notifications.CatalogPath)
	require.Equal(t, 50, cfg.Notifications.DefaultPageSize)
	require.False(t, cfg.Notifications.Sweep.Enabled)
	require.Equal(t, "*/5 * * * *", cfg.Notifications.Sweep.Schedule)
	require.Equal(t, 250, cfg.Notifications.Sweep.BatchSize)
	require.Equal(t, 16, cfg.Notifications.Realtime.BufferSize)
	require.Equal(t, "taskhub:test", cfg.Notifications.Realtime.RelayChannel)
	require.Equal(t, "node-a", cfg.Notifications.Realtime.NodeID)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/internal/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.True(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 20, cfg.Notifications.DefaultPageSize)
	require.Equal(t, "@every 30s", cfg.Notifications.Sweep.Schedule)
	require.Equal(t, "taskhub:realtime", cfg.Notifications.Realtime.RelayChannel)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("TASKHUB_SERVER_PORT", "7070")
	t.Setenv("TASKHUB_NOTIFICATIONS_SWEEP_SCHEDULE", "@every 1m")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "@every 1m", cfg.Notifications.Sweep.Schedule)
}

func TestAuthConfigTokenConfigDefaultsTTL(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "s", Issuer: " taskhub "}}
	tc := cfg.TokenConfig()
	require.Equal(t, auth.DefaultTokenTTL, tc.TTL)
	require.Equal(t, "taskhub", tc.Issuer)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	sqlite := DatabaseConfig{Path: " ./data/x.sqlite "}.ConnectionConfig()
	require.Equal(t, "sqlite", sqlite.Driver)
	require.Equal(t, "./data/x.sqlite", sqlite.Path)

	pg := DatabaseConfig{
		Driver:   "PostgreSQL",
		Postgres: DBAuthConfig{Host: "db", Port: 5432, Database: "n", Username: "u", Password: "p"},
	}.ConnectionConfig()
	require.Equal(t, "postgres", pg.Driver)
	require.Equal(t, "db", pg.Host)
	require.Equal(t, "n", pg.Name)

	my := DatabaseConfig{Driver: "mysql", MySQL: DBAuthConfig{Host: "mysql", Port: 3306}}.ConnectionConfig()
	require.Equal(t, "mysql", my.Driver)
	require.Equal(t, 3306, my.Port)

	unknown := DatabaseConfig{Driver: "oracle"}.ConnectionConfig()
	require.Equal(t, "oracle", unknown.Driver)
}

func TestCacheRedisOptions(t *testing.T) {
	opts := CacheConfig{Redis: RedisCacheConfig{Address: " localhost:6379 ", DB: 3, TLS: true, Timeout: time.Second}}.RedisOptions()
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 3, opts.DB)
	require.NotNil(t, opts.TLSConfig)
	require.Equal(t, time.Second, opts.ReadTimeout)

	plain := CacheConfig{}.RedisOptions()
	require.Nil(t, plain.TLSConfig)
}
