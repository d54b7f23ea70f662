// Package observability defines the logging and metrics contracts used
// across the fetcher. Components depend on these interfaces only; the
// zerolog and prometheus adapters live in subpackages.
package observability

import "context"

// Fields are structured logging fields as key-value pairs.
type Fields map[string]interface{}

// Logger is the structured logging contract. Implementations emit
// JSON suitable for log aggregation; all methods take a context so
// request IDs can be correlated.
type Logger interface {
	// Debug logs detail useful during development; usually filtered
	// out in production.
	Debug(ctx context.Context, msg string, fields Fields)

	// Info logs general operational information.
	Info(ctx context.Context, msg string, fields Fields)

	// Warn logs potentially harmful situations that did not stop the
	// operation.
	Warn(ctx context.Context, msg string, fields Fields)

	// Error logs a failure together with its error.
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger that includes the given fields in
	// every entry.
	WithFields(fields Fields) Logger
}

// Metrics is the metrics collection contract. Implementations should
// expose Prometheus-compatible metrics.
type Metrics interface {
	// RecordSuccess increments the success counter for an operation.
	RecordSuccess(operation string)

	// RecordError increments the error counter for an operation and
	// error type (use domain error codes for errorType).
	RecordError(operation string, errorType string)

	// RecordDuration records an operation duration in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordBodySize records the size of a captured body in bytes,
	// labeled with the sink suffix hint ("" becomes "none").
	RecordBodySize(hint string, bytes int64)

	// StartOperation / EndOperation track in-flight operations. Pair
	// EndOperation in a defer.
	StartOperation(operation string)
	EndOperation(operation string)
}

// Nop returns implementations that do nothing, for callers that do not
// care about observability (library use, benchmarks).
func Nop() (Logger, Metrics) {
	return nopLogger{}, nopMetrics{}
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, Fields)        {}
func (nopLogger) Info(context.Context, string, Fields)         {}
func (nopLogger) Warn(context.Context, string, Fields)         {}
func (nopLogger) Error(context.Context, string, error, Fields) {}
func (l nopLogger) WithFields(Fields) Logger                   { return l }

type nopMetrics struct{}

func (nopMetrics) RecordSuccess(string)          {}
func (nopMetrics) RecordError(string, string)    {}
func (nopMetrics) RecordDuration(string, float64) {}
func (nopMetrics) RecordBodySize(string, int64)  {}
func (nopMetrics) StartOperation(string)         {}
func (nopMetrics) EndOperation(string)           {}
