package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/taskhub/internal/app"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`{"categories":[{"code":"TASK","name":"Tasks"}]}`), 0o600))

	cfg := &app.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(dir, "taskhub.sqlite")
	cfg.Auth.JWT.Secret = "bootstrap-secret"
	cfg.Notifications.CatalogPath = catalogPath
	cfg.Notifications.DefaultPageSize = 20
	cfg.Notifications.Sweep = app.SweepConfig{Enabled: true, Schedule: "@every 1h", BatchSize: 10}
	cfg.Monitoring.Health.Enabled = true
	return cfg
}

func TestBootstrapRuntimeWithoutRedis(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(zap.NewNop()) })

	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.RateStore)
	require.NotNil(t, stack.Sweeper)
	require.False(t, stack.Catalog.Degraded())

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestBootstrapRuntimeWithRedisRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.Redis = app.RedisCacheConfig{Enabled: true, Address: mr.Addr(), Timeout: time.Second}
	cfg.Notifications.Realtime.RelayChannel = "taskhub:bootstrap"

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(zap.NewNop()) })

	require.NotNil(t, stack.Redis)
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("taskhub:*")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, stack.Relay)
	require.Eventually(t, stack.Relay.Subscribed, 2*time.Second, 10*time.Millisecond)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "realtime_relay")
}

func TestBootstrapRuntimeFallsBackWhenRedisDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Redis = app.RedisCacheConfig{Enabled: true, Address: "127.0.0.1:1", Timeout: 200 * time.Millisecond}

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(zap.NewNop()) })

	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.RateStore)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "redis unavailable")
	require.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestBootstrapRuntimeRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestReloadCatalogKeepsSnapshotOnFailure(t *testing.T) {
	cfg := testConfig(t)
	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(zap.NewNop()) })

	stack.ReloadCatalog(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	_, ok := stack.Catalog.GetCategoryByCode("task")
	require.True(t, ok)

	require.NoError(t, os.WriteFile(cfg.Notifications.CatalogPath, []byte(`{"categories":[{"code":"PROJECT"}]}`), 0o600))
	stack.ReloadCatalog(cfg.Notifications.CatalogPath, zap.NewNop())
	_, ok = stack.Catalog.GetCategoryByCode("project")
	require.True(t, ok)
}

func TestEnsureSecretsPresent(t *testing.T) {
	require.Error(t, ensureSecretsPresent(nil))
	require.Error(t, ensureSecretsPresent(&app.Config{}))

	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "  secret  "
	require.NoError(t, ensureSecretsPresent(cfg))
	require.Equal(t, "secret", cfg.Auth.JWT.Secret)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
