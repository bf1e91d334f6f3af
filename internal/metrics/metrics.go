package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonqa_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anonqa_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 30},
		},
		[]string{"method", "path"},
	)

	// Realtime metrics
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anonqa_realtime_connections",
			Help: "Currently open realtime connections",
		},
	)

	RoomJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anonqa_room_joins_total",
			Help: "Total group room joins",
		},
	)

	EventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonqa_events_broadcast_total",
			Help: "Total domain events broadcast",
		},
		[]string{"kind"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anonqa_events_dropped_total",
			Help: "Event deliveries dropped because a subscriber buffer was full",
		},
	)

	// AI metrics
	Completions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonqa_ai_completions_total",
			Help: "AI completions by action and terminal outcome",
		},
		[]string{"action", "outcome"}, // completed, errored, cancelled
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonqa_ai_quota_rejections_total",
			Help: "AI requests rejected by the usage quota",
		},
		[]string{"action"},
	)

	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonqa_ai_tokens_used_total",
			Help: "Estimated tokens produced by the upstream service",
		},
		[]string{"action"},
	)
)
