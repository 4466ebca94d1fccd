package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts persisted notifications by main category code.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"category"},
	)

	// StatusTransitions counts status transition attempts by target status and outcome (applied|rejected).
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_notification_status_transitions_total",
			Help: "Total number of notification status transition attempts",
		},
		[]string{"to", "result"},
	)

	// RealtimeSessions tracks currently connected realtime sessions.
	RealtimeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskhub_realtime_sessions",
			Help: "Number of connected realtime sessions",
		},
	)

	// RealtimeDeliveries counts realtime message deliveries by result (delivered|dropped).
	RealtimeDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_realtime_deliveries_total",
			Help: "Total number of realtime message deliveries",
		},
		[]string{"result"},
	)

	// SweepRuns counts background sweep iterations by result (ok|error).
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_sweep_runs_total",
			Help: "Total number of notification sweep iterations",
		},
		[]string{"result"},
	)

	// CatalogDegraded is 1 when the category catalog failed to load.
	CatalogDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskhub_catalog_degraded",
			Help: "Whether the notification category catalog is running empty after a load failure",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
