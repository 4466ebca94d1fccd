package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/taskhub/internal/app"
	iauth "github.com/charlesng35/taskhub/internal/auth"
	"github.com/charlesng35/taskhub/internal/catalog"
	"github.com/charlesng35/taskhub/internal/handlers"
	"github.com/charlesng35/taskhub/internal/middleware"
	"github.com/charlesng35/taskhub/internal/monitoring"
	"github.com/charlesng35/taskhub/internal/notifications"
	"github.com/charlesng35/taskhub/internal/realtime"
)

// Dependencies are the wired services the HTTP layer serves.
type Dependencies struct {
	Config        *app.Config
	DB            *gorm.DB
	Tokens        *iauth.TokenVerifier
	Catalog       *catalog.Provider
	Notifications *notifications.Service
	Hub           *realtime.Hub
	RateStore     middleware.RateStore
	// HealthChecks are readiness probes added to the database and catalog checks.
	HealthChecks []monitoring.Check
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token verifier must be provided")
	}
	if deps.Notifications == nil {
		return nil, fmt.Errorf("notification service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	cfg := deps.Config

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, cfg, healthManager(deps))

	limit := cfg.Server.RateLimit
	rateLimit := middleware.RateLimit(deps.RateStore, limit.Requests, limit.Window)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Tokens, false), rateLimit)

	registerCatalogRoutes(api, handlers.NewCatalogHandler(deps.Catalog))
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.Notifications, cfg.Notifications.DefaultPageSize))

	if deps.Hub != nil {
		ws := r.Group("/ws")
		ws.Use(middleware.Auth(deps.Tokens, true), rateLimit)
		registerRealtimeRoutes(ws, handlers.NewRealtimeHandler(deps.Hub))
	}

	return r, nil
}
