package checks

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/charlesng35/taskhub/internal/monitoring"
)

// Redis returns a readiness probe for the relay and rate limit backend. When Redis is not
// enabled the probe is up; when it is enabled but no client connected, the node runs
// without cross-node fan-out and the probe reports degraded.
func Redis(client redis.UniversalClient, enabled bool) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if !enabled {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled"}
		}
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "redis unavailable; realtime is node-local"}
		}

		result := monitoring.ResultFromError(client.Ping(ctx).Err(), time.Since(start))
		if result.Status == monitoring.StatusDown {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}
