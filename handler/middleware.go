package handler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/weheartit/whi-url-fetcher/observability"
)

// LoggingMiddleware adds structured logging to request processing
func LoggingMiddleware(logger observability.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			workerName, _ := ctx.Value(ContextKeyWorker).(string)
			platform, _ := ctx.Value(ContextKeyPlatform).(string)

			requestLogger := logger.WithFields(observability.Fields{
				"request_id": req.ID,
				"type":       req.Type,
				"source":     req.Source,
				"worker":     workerName,
				"platform":   platform,
			})

			requestLogger.Info(ctx, "Processing request", observability.Fields{
				"payload_size": len(req.Payload),
			})

			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			if err != nil {
				requestLogger.Error(ctx, "Request failed with error", err, observability.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			} else if !resp.Success {
				requestLogger.Warn(ctx, "Request completed with failure", observability.Fields{
					"error_code":  resp.Error.Code,
					"error_msg":   resp.Error.Message,
					"duration_ms": duration.Milliseconds(),
				})
			} else {
				requestLogger.Info(ctx, "Request completed successfully", observability.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			}

			resp.Duration = duration
			return resp, err
		}
	}
}

// MetricsMiddleware records metrics for request processing
func MetricsMiddleware(metrics observability.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			workerName, _ := ctx.Value(ContextKeyWorker).(string)
			if workerName == "" {
				workerName = "unknown"
			}

			metrics.StartOperation(workerName)
			defer metrics.EndOperation(workerName)

			start := time.Now()
			resp, err := next(ctx, req)
			metrics.RecordDuration(workerName, time.Since(start).Seconds())

			if err != nil {
				metrics.RecordError(workerName, "processing_error")
			} else if !resp.Success {
				errorType := "unknown_error"
				if resp.Error != nil {
					errorType = resp.Error.Code
				}
				metrics.RecordError(workerName, errorType)
			} else {
				metrics.RecordSuccess(workerName)
			}

			return resp, err
		}
	}
}

// RecoveryMiddleware recovers from panics and returns an error response.
// This middleware should be the outermost layer to catch all panics.
func RecoveryMiddleware(logger observability.Logger, metrics observability.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (resp Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(ctx, "Panic recovered", fmt.Errorf("%v", r), observability.Fields{
						"request_id": req.ID,
						"worker":     ctx.Value(ContextKeyWorker),
						"stack":      string(debug.Stack()),
					})

					metrics.RecordError("panic", "panic_recovered")

					// Don't expose panic details to the client
					resp = NewErrorResponse(
						req.ID,
						"INTERNAL_ERROR",
						"An internal error occurred",
						"",
					)
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()

			return next(ctx, req)
		}
	}
}

// TimeoutMiddleware enforces a timeout on request processing.
// If the timeout is exceeded, it returns a timeout error response.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp Response
				err  error
			}
			resultChan := make(chan result, 1)

			go func() {
				resp, err := next(timeoutCtx, req)
				resultChan <- result{resp, err}
			}()

			select {
			case res := <-resultChan:
				return res.resp, res.err

			case <-timeoutCtx.Done():
				return NewErrorResponse(
					req.ID,
					"TIMEOUT",
					"Request processing timed out",
					fmt.Sprintf("Exceeded timeout of %v", timeout),
				), timeoutCtx.Err()
			}
		}
	}
}
