package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "unboundedfigures"

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redis_errors_total",
		Help:      "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by key family and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache-aside lookups by key family and result",
	}, []string{"family", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "database_query_latency_seconds",
		Help:      "Database query latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SubmissionsCreated counts new submissions by category.
	SubmissionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_created_total",
		Help:      "Submissions created by category",
	}, []string{"category"})

	// ViewsRecorded counts recorded views, split by whether a user was attached.
	ViewsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "views_recorded_total",
		Help:      "Views recorded, by audience",
	}, []string{"audience"})

	// TagPrefUpserts counts tag preference increments by outcome.
	TagPrefUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tag_pref_upserts_total",
		Help:      "Tag preference upserts by outcome",
	}, []string{"outcome"})

	// FollowToggles counts follow toggles by resulting state.
	FollowToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "follow_toggles_total",
		Help:      "Follow toggles by resulting state",
	}, []string{"state"})

	// RecommendationsServed counts recommendation responses by source.
	RecommendationsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_served_total",
		Help:      "Recommendation feeds served, by source (personalized, fallback, opted_out)",
	}, []string{"source"})

	// WebSocketConnections is the gauge of active WebSocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_connections",
		Help:      "Number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "websocket_backpressure_drops_total",
		Help:      "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
