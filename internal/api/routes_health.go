package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/taskhub/internal/app"
	"github.com/charlesng35/taskhub/internal/handlers"
	"github.com/charlesng35/taskhub/internal/monitoring"
	"github.com/charlesng35/taskhub/internal/monitoring/checks"
)

func healthManager(deps Dependencies) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager(0)
	if deps.Hub != nil {
		manager.RegisterLiveness(checks.Realtime(deps.Hub))
	}
	manager.RegisterReadiness(checks.Database(deps.DB))
	manager.RegisterReadiness(checks.Catalog(deps.Catalog))
	for _, check := range deps.HealthChecks {
		manager.RegisterReadiness(check)
	}
	return manager
}

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) {
	if cfg.Monitoring.Health.Enabled {
		handler := handlers.NewHealthHandler(manager)
		r.GET("/health", handler.Summary)
		r.GET("/health/live", handler.Live)
		r.GET("/health/ready", handler.Ready)
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}
}
