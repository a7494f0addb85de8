package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Session metrics
	SessionsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatd_sessions_connected",
			Help: "Currently connected sessions",
		},
	)

	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_sessions_total",
			Help: "Total session connect attempts",
		},
		[]string{"result"}, // "accepted", "rejected"
	)

	// Message metrics
	MessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_messages_published_total",
			Help: "Total messages durably persisted and broadcast",
		},
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_messages_rejected_total",
			Help: "Total message publishes rejected",
		},
		[]string{"reason"},
	)

	BroadcastsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_broadcasts_delivered_total",
			Help: "Total per-session broadcast deliveries",
		},
	)

	SlowSessionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_slow_sessions_dropped_total",
			Help: "Sessions closed because their outbound queue filled",
		},
	)

	// Notification metrics
	NotificationsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_notifications_written_total",
			Help: "Total notification records written",
		},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_dispatch_failures_total",
			Help: "Notification dispatch failures by stage",
		},
		[]string{"stage"}, // "notification", "counter", "push"
	)

	BacklogReplayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_backlog_notifications_replayed_total",
			Help: "Notification records replayed on connect",
		},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatd_store_latency_seconds",
			Help:    "Durable store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"op"},
	)
)
