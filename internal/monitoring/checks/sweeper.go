package checks

import (
	"context"
	"time"

	"github.com/charlesng35/taskhub/internal/app/maintenance"
	"github.com/charlesng35/taskhub/internal/monitoring"
)

const defaultSweepMaxAge = 10 * time.Minute

// SweepObserver exposes the last sweep outcome.
type SweepObserver interface {
	Status() maintenance.RunStatus
}

// Sweeper verifies the scheduled dispatch job ran recently and without errors.
func Sweeper(observer SweepObserver, maxAge time.Duration, now func() time.Time) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultSweepMaxAge
	}
	if now == nil {
		now = time.Now
	}

	return monitoring.NewCheck("sweeper", func(context.Context) monitoring.ProbeResult {
		if observer == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "sweeper disabled"}
		}

		status := observer.Status()
		switch {
		case status.Runs == 0:
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "pending first run"}
		case status.LastError != "":
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: status.LastError}
		case now().Sub(status.LastRunAt) > maxAge:
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: "stale run " + status.LastRunAt.UTC().Format(time.RFC3339),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}
