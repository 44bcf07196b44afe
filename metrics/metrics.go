// Package metrics provides Prometheus metrics for content-radar.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsCollectedTotal counts items emitted by source adapters.
	ItemsCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_radar",
			Name:      "items_collected_total",
			Help:      "Total number of items collected, by source",
		},
		[]string{"source"},
	)

	// PublishTotal counts queue publish operations.
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_radar",
			Name:      "publish_total",
			Help:      "Total number of queue publish operations",
		},
		[]string{"topic", "status"},
	)

	// ItemsProcessedTotal counts processor outcomes.
	ItemsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_radar",
			Name:      "items_processed_total",
			Help:      "Total number of processed items, by outcome",
		},
		[]string{"status"},
	)

	// ProcessingDuration measures per-item processing stage duration.
	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "content_radar",
			Name:      "processing_duration_seconds",
			Help:      "Duration of per-item processing stages in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// CollectionErrorsTotal counts per-source collection failures.
	CollectionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_radar",
			Name:      "collection_errors_total",
			Help:      "Total number of collection errors, by source",
		},
		[]string{"source"},
	)

	// RedisConnectionStatus tracks Redis connection status.
	RedisConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "content_radar",
			Name:      "redis_connection_status",
			Help:      "Redis connection status (1 = connected, 0 = disconnected)",
		},
	)
)

// RecordPublish records a queue publish operation.
func RecordPublish(topic, status string) {
	PublishTotal.WithLabelValues(topic, status).Inc()
}

// RecordProcessed records a processor outcome: processed, skipped, or error.
func RecordProcessed(status string) {
	ItemsProcessedTotal.WithLabelValues(status).Inc()
}

// SetRedisConnected sets Redis connection status to connected.
func SetRedisConnected() {
	RedisConnectionStatus.Set(1)
}

// SetRedisDisconnected sets Redis connection status to disconnected.
func SetRedisDisconnected() {
	RedisConnectionStatus.Set(0)
}
