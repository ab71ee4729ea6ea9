// Package observability holds the Prometheus instruments shared across the
// application.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricate_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fabricate_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DownloadsRecorded counts counted vs deduplicated download hits.
	DownloadsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricate_downloads_recorded_total",
		Help: "Download hits by outcome (counted or deduplicated)",
	}, []string{"outcome"})

	// SearchIndexOps counts search index operations by kind and result.
	SearchIndexOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabricate_search_index_ops_total",
		Help: "Search index upserts and deletes by result",
	}, []string{"op", "result"})

	// SearchIndexQueueDepth is the gauge of pending index sync jobs.
	SearchIndexQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fabricate_search_index_queue_depth",
		Help: "Number of queued search index sync jobs",
	})

	// FileHostBytes counts bytes written to the blob store.
	FileHostBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fabricate_file_host_bytes_total",
		Help: "Total bytes written to the file host",
	})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
