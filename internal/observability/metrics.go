package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tourbook_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CommentTreeOrphans counts replies dropped from a tree because their parent was missing.
	CommentTreeOrphans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tourbook_comment_tree_orphans_total",
		Help: "Replies dropped while building comment trees because the parent comment was not found",
	})

	// CommentTreeCache counts anonymous comment tree cache lookups by result.
	CommentTreeCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_comment_tree_cache_total",
		Help: "Anonymous comment tree cache lookups by result",
	}, []string{"result"})

	// CommentCascadeSize observes how many comments each cascading delete removed.
	CommentCascadeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tourbook_comment_cascade_size",
		Help:    "Number of comments removed by one cascading delete",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
