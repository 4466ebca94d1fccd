package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/taskhub/internal/api"
	"github.com/charlesng35/taskhub/internal/app"
	"github.com/charlesng35/taskhub/internal/app/maintenance"
	iauth "github.com/charlesng35/taskhub/internal/auth"
	"github.com/charlesng35/taskhub/internal/catalog"
	"github.com/charlesng35/taskhub/internal/database"
	"github.com/charlesng35/taskhub/internal/middleware"
	"github.com/charlesng35/taskhub/internal/monitoring"
	"github.com/charlesng35/taskhub/internal/monitoring/checks"
	"github.com/charlesng35/taskhub/internal/notifications"
	"github.com/charlesng35/taskhub/internal/realtime"
	"github.com/charlesng35/taskhub/pkg/logger"
)

const redisPingTimeout = 5 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB            *gorm.DB
	Redis         *redis.Client
	Catalog       *catalog.Provider
	Hub           *realtime.Hub
	Relay         *realtime.RedisRelay
	Notifications *notifications.Service
	Sweeper       *maintenance.Sweeper
	RateStore     middleware.RateStore
	Router        *gin.Engine

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// bootstrapRuntime initialises the database, catalog, realtime hub, notification service,
// background sweeper and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	bgCtx, cancel := context.WithCancel(ctx)
	stack.cancel = cancel

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Catalog = catalog.Load(cfg.Notifications.CatalogPath, catalog.WithLogger(logger.WithModule("catalog")))

	rt := cfg.Notifications.Realtime
	stack.Hub = realtime.NewHub(realtime.WithBufferSize(rt.BufferSize), realtime.WithNodeID(rt.NodeID))

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = connectRedis(ctx, cfg.Cache); err != nil {
			log.Warn("redis unavailable; realtime stays node-local and rate limits use memory", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	if stack.Redis != nil {
		relay, relayErr := realtime.NewRedisRelay(stack.Redis, rt.RelayChannel)
		if relayErr != nil {
			return nil, fmt.Errorf("initialise realtime relay: %w", relayErr)
		}
		stack.Hub.SetRelay(relay)
		stack.Relay = relay
		stack.goBackground(func() { relay.Supervise(bgCtx, stack.Hub, time.Second, 30*time.Second) })
		stack.RateStore = middleware.NewRedisRateStore(stack.Redis)
	} else {
		stack.RateStore = middleware.NewMemoryRateStore(nil)
	}

	stack.Notifications, err = notifications.NewService(ctx, stack.DB, stack.Catalog, notifications.WithPublisher(stack.Hub))
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	if cfg.Notifications.Sweep.Enabled {
		stack.Sweeper, err = maintenance.NewSweeper(stack.Notifications,
			maintenance.WithSchedule(cfg.Notifications.Sweep.Schedule),
			maintenance.WithBatchSize(cfg.Notifications.Sweep.BatchSize),
		)
		if err != nil {
			return nil, fmt.Errorf("initialise notification sweeper: %w", err)
		}
		stack.goBackground(func() { stack.Sweeper.Run(bgCtx) })
	}

	healthChecks := []monitoring.Check{checks.Redis(redisClient(stack.Redis), cfg.Cache.Redis.Enabled)}
	if stack.Relay != nil {
		healthChecks = append(healthChecks, checks.Relay(stack.Relay))
	}
	if stack.Sweeper != nil {
		now := time.Now()
		interval := stack.Sweeper.Next(now).Sub(now)
		healthChecks = append(healthChecks, checks.Sweeper(stack.Sweeper, 3*interval, nil))
	}

	tokens, err := iauth.NewTokenVerifier(cfg.Auth.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token verifier: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:        cfg,
		DB:            stack.DB,
		Tokens:        tokens,
		Catalog:       stack.Catalog,
		Notifications: stack.Notifications,
		Hub:           stack.Hub,
		RateStore:     stack.RateStore,
		HealthChecks:  healthChecks,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func (s *runtimeStack) goBackground(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// ReloadCatalog re-reads the catalog file. A failed reload keeps the current catalog.
func (s *runtimeStack) ReloadCatalog(path string, log *zap.Logger) {
	if s == nil || s.Catalog == nil {
		return
	}
	if err := s.Catalog.Reload(path); err != nil {
		return
	}
	log.Info("notification catalog reloaded", zap.String("path", path))
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// redisClient avoids handing a typed nil client to probes.
func redisClient(client *redis.Client) redis.UniversalClient {
	if client == nil {
		return nil
	}
	return client
}

func connectRedis(ctx context.Context, cfg app.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(cfg.RedisOptions())

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
