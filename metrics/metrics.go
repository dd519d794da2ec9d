// Package metrics provides Prometheus metrics for image-pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "image_pipeline"

// Process results.
const (
	ResultMiss  = "miss"
	ResultHit   = "hit"
	ResultError = "error"
)

var (
	// ProcessTotal counts ProcessImage calls by result.
	ProcessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_total",
			Help:      "Total number of image processing requests",
		},
		[]string{"result"},
	)

	// ProcessDuration measures ProcessImage duration.
	ProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Duration of image processing requests in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"result"},
	)

	// VariantsTotal counts variant cells by format and outcome.
	VariantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_total",
			Help:      "Total number of variant cells by outcome",
		},
		[]string{"format", "outcome"},
	)

	// VariantBytes observes encoded variant sizes.
	VariantBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "variant_bytes",
			Help:      "Distribution of encoded variant sizes in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"format"},
	)

	// PlaceholderFailures counts blur placeholder failures.
	PlaceholderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholder_failures_total",
			Help:      "Total number of blur placeholder generation failures",
		},
	)

	// CacheSweepDeleted counts manifest entries removed by cleanup.
	CacheSweepDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_sweep_deleted_total",
			Help:      "Total number of manifest cache entries deleted by cleanup",
		},
	)

	// ErrorsTotal counts errors by operation and type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"operation", "error_type"},
	)
)

// RecordProcess records a ProcessImage call.
func RecordProcess(result string, seconds float64) {
	ProcessTotal.WithLabelValues(result).Inc()
	ProcessDuration.WithLabelValues(result).Observe(seconds)
}

// RecordVariant records one variant cell outcome.
func RecordVariant(format, outcome string, byteSize int64) {
	VariantsTotal.WithLabelValues(format, outcome).Inc()
	if byteSize > 0 {
		VariantBytes.WithLabelValues(format).Observe(float64(byteSize))
	}
}

// RecordPlaceholderFailure records a blur placeholder failure.
func RecordPlaceholderFailure() {
	PlaceholderFailures.Inc()
}

// RecordSweep records a cache cleanup pass.
func RecordSweep(deleted, failed int) {
	CacheSweepDeleted.Add(float64(deleted))
	if failed > 0 {
		ErrorsTotal.WithLabelValues("cache_sweep", "delete_failed").Add(float64(failed))
	}
}

// RecordError records an error.
func RecordError(operation, errorType string) {
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}
