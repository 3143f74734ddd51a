package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodapp_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodapp_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SyncPulledRecords counts records returned by pulls.
	SyncPulledRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodapp_sync_pulled_records_total",
		Help: "Total number of records returned by sync pulls",
	})

	// SyncPushedRecords counts records applied by pushes, by operation (upserted, skipped, deleted).
	SyncPushedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodapp_sync_pushed_records_total",
		Help: "Total number of records applied by sync pushes",
	}, []string{"operation"})

	// RelationshipTransitions counts relationship operations by outcome.
	RelationshipTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodapp_relationship_transitions_total",
		Help: "Relationship state machine operations by operation and result",
	}, []string{"operation", "result"})

	// CacheLookups counts cache hits and misses by cache name.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodapp_cache_lookups_total",
		Help: "Cache lookups by cache and result",
	}, []string{"cache", "result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordTransition records the outcome of a relationship operation. A nil error counts as "ok".
func RecordTransition(operation string, err error, code func(error) string) {
	result := "ok"
	if err != nil {
		result = code(err)
	}
	RelationshipTransitions.WithLabelValues(operation, result).Inc()
}
