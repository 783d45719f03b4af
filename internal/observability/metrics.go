package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photostream_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "photostream_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// BlobOperations counts blob store operations by kind and outcome.
	BlobOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photostream_blob_operations_total",
		Help: "Total blob store operations by kind and outcome",
	}, []string{"operation", "outcome"})

	// BlobOperationLatency records blob store operation latency by kind.
	BlobOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "photostream_blob_operation_latency_seconds",
		Help:    "Blob store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// ObserveDBQuery records the latency of a database query.
func ObserveDBQuery(operation, table string, elapsed time.Duration) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// ObserveBlobOperation records outcome and latency for a blob store call.
func ObserveBlobOperation(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BlobOperations.WithLabelValues(operation, outcome).Inc()
	BlobOperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
