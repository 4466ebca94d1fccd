package checks

import (
	"context"

	"github.com/charlesng35/taskhub/internal/monitoring"
)

// RelayObserver exposes the subscription state of the cross-node relay.
type RelayObserver interface {
	Subscribed() bool
	Err() error
}

// Relay reports whether this node still receives envelopes from other nodes. A lost
// subscription leaves realtime node-local, which degrades but does not fail readiness.
func Relay(observer RelayObserver) monitoring.Check {
	return monitoring.NewCheck("realtime_relay", func(context.Context) monitoring.ProbeResult {
		if observer == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "relay disabled"}
		}
		if observer.Subscribed() {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "subscribed"}
		}
		details := "relay not subscribed; realtime is node-local"
		if err := observer.Err(); err != nil {
			details += ": " + err.Error()
		}
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: details}
	})
}
