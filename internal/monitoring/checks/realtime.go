package checks

import (
	"context"
	"fmt"

	"github.com/charlesng35/taskhub/internal/monitoring"
)

// RealtimeObserver exposes the hub state the probe reports.
type RealtimeObserver interface {
	SessionCount() int
}

// Realtime reports the number of live sessions on this node.
func Realtime(observer RealtimeObserver) monitoring.Check {
	return monitoring.NewCheck("realtime", func(context.Context) monitoring.ProbeResult {
		if observer == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "realtime hub unavailable"}
		}
		return monitoring.ProbeResult{
			Status:  monitoring.StatusUp,
			Details: fmt.Sprintf("%d sessions", observer.SessionCount()),
		}
	})
}
