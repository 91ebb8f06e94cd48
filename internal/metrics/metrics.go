// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	ProjectOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_operations_total",
			Help: "Project mutations by operation and result",
		},
		[]string{"operation", "result"}, // result: success, failed
	)

	OrphanImagesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orphan_images_removed_total",
			Help: "Image files removed by the janitor because no project referenced them",
		},
	)

	ProjectListCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_list_cache_total",
			Help: "Project list cache lookups",
		},
		[]string{"result"}, // hit, miss
	)
)

// RecordHTTPRequest observes one served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordProjectOperation counts a create, update or delete outcome.
func RecordProjectOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	ProjectOperations.WithLabelValues(operation, result).Inc()
}
