// Package metrics implements observability.Metrics with the Prometheus
// client library. Metric names are prefixed with the service name and
// follow Prometheus conventions.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements observability.Metrics.
type PrometheusMetrics struct {
	processedTotal  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	bodySizeBytes   *prometheus.HistogramVec
	inProgress      *prometheus.GaugeVec
}

// New creates and registers the fetcher's metrics on the given
// registerer (pass prometheus.DefaultRegisterer in production, a fresh
// registry in tests). Panics on duplicate registration, which is a
// programming error.
func New(serviceName string, reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		processedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_processed_total", serviceName),
				Help: "Total processed operations by status",
			},
			[]string{"status", "operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_errors_total", serviceName),
				Help: "Total errors by error type and operation",
			},
			[]string{"error_type", "operation"},
		),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    fmt.Sprintf("%s_duration_seconds", serviceName),
				Help:    "Operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		bodySizeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: fmt.Sprintf("%s_body_size_bytes", serviceName),
				Help: "Captured response body sizes in bytes",
				// 1KB .. 1GB, exponential
				Buckets: prometheus.ExponentialBuckets(1024, 10, 7),
			},
			[]string{"hint"},
		),
		inProgress: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: fmt.Sprintf("%s_in_progress", serviceName),
				Help: "Operations currently in progress",
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(
		m.processedTotal,
		m.errorsTotal,
		m.durationSeconds,
		m.bodySizeBytes,
		m.inProgress,
	)
	return m
}

func (m *PrometheusMetrics) RecordSuccess(operation string) {
	m.processedTotal.WithLabelValues("success", operation).Inc()
}

func (m *PrometheusMetrics) RecordError(operation, errorType string) {
	m.processedTotal.WithLabelValues("error", operation).Inc()
	m.errorsTotal.WithLabelValues(errorType, operation).Inc()
}

func (m *PrometheusMetrics) RecordDuration(operation string, seconds float64) {
	m.durationSeconds.WithLabelValues(operation).Observe(seconds)
}

func (m *PrometheusMetrics) RecordBodySize(hint string, bytes int64) {
	if hint == "" {
		hint = "none"
	}
	m.bodySizeBytes.WithLabelValues(hint).Observe(float64(bytes))
}

func (m *PrometheusMetrics) StartOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) EndOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Dec()
}
