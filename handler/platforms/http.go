// Package platforms adapts the handler to concrete runtimes: a plain
// HTTP server, AWS Lambda behind SQS, and a RabbitMQ consumer.
package platforms

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weheartit/whi-url-fetcher/handler"
)

// HTTPAdapter adapts the handler for standard HTTP servers.
// This adapter can be used for local development, Kubernetes deployments,
// or any standard HTTP server environment.
type HTTPAdapter struct {
	handler        *handler.Handler
	metricsHandler http.Handler
}

// NewHTTPAdapter creates a new HTTP adapter with the provided handler.
// When the handler config enables metrics, /metrics serves the default
// Prometheus registry.
func NewHTTPAdapter(h *handler.Handler) *HTTPAdapter {
	a := &HTTPAdapter{handler: h}
	if h.Config().EnableMetrics {
		a.metricsHandler = promhttp.Handler()
	}
	return a
}

// ServeHTTP implements the http.Handler interface, allowing the adapter
// to be used with any standard HTTP server or router.
func (a *HTTPAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.handler.Config().EnableHealth && a.isHealthCheck(r.URL.Path) {
		a.handleHealth(w, r)
		return
	}

	if r.URL.Path == "/metrics" {
		if a.metricsHandler == nil {
			http.Error(w, "Metrics disabled", http.StatusNotFound)
			return
		}
		a.metricsHandler.ServeHTTP(w, r)
		return
	}

	body, err := a.readBody(r)
	if err != nil {
		a.writeErrorResponse(w, handler.NewErrorResponse(
			uuid.New().String(),
			"INVALID_REQUEST",
			"Failed to read request body",
			err.Error(),
		))
		return
	}

	req := a.buildRequest(r, body)

	resp, err := a.handler.Handle(r.Context(), req)
	a.writeResponse(w, resp, err)
}

// isHealthCheck checks if the path is a health check endpoint
func (a *HTTPAdapter) isHealthCheck(path string) bool {
	healthPaths := []string{
		"/health",
		"/healthz",
		"/ready",
		"/readyz",
		"/live",
		"/livez",
	}

	for _, healthPath := range healthPaths {
		if path == healthPath {
			return true
		}
	}
	return false
}

// handleHealth handles health check requests
func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := a.handler.Health(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"worker": a.handler.Worker().Name(),
		"time":   time.Now().UTC(),
	})
}

// readBody reads and validates the request body
func (a *HTTPAdapter) readBody(r *http.Request) ([]byte, error) {
	maxSize := a.handler.Config().MaxRequestSize
	if maxSize <= 0 {
		maxSize = 1024 * 1024
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxSize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()

	return body, nil
}

// buildRequest creates a platform-agnostic request from the HTTP request
func (a *HTTPAdapter) buildRequest(r *http.Request, body []byte) handler.Request {
	requestID := a.extractRequestID(r)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	return handler.Request{
		ID:        requestID,
		Source:    "http",
		Type:      a.extractRequestType(r),
		Payload:   json.RawMessage(body),
		Metadata:  a.extractMetadata(r),
		Timestamp: time.Now().UTC(),
	}
}

// extractRequestID attempts to extract request ID from headers
func (a *HTTPAdapter) extractRequestID(r *http.Request) string {
	headers := []string{
		"X-Request-ID",
		"X-Correlation-ID",
		"Request-ID",
	}

	for _, header := range headers {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}

	return ""
}

// extractRequestType determines the request type from the HTTP request
func (a *HTTPAdapter) extractRequestType(r *http.Request) string {
	if reqType := r.Header.Get("X-Request-Type"); reqType != "" {
		return reqType
	}

	// First path segment, e.g. /fetch -> fetch
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path != "" && path != "/" {
		if idx := strings.Index(path, "/"); idx > 0 {
			return path[:idx]
		}
		return path
	}

	return strings.ToLower(r.Method)
}

// extractMetadata builds metadata from the HTTP request
func (a *HTTPAdapter) extractMetadata(r *http.Request) map[string]string {
	metadata := make(map[string]string)

	metadata["http_method"] = r.Method
	metadata["http_path"] = r.URL.Path
	metadata["http_host"] = r.Host

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			metadata["query_"+key] = values[0]
		}
	}

	relevantHeaders := []string{
		"Content-Type",
		"Accept",
		"User-Agent",
		"X-Forwarded-For",
		"X-Real-IP",
	}

	for _, header := range relevantHeaders {
		if value := r.Header.Get(header); value != "" {
			metadata["header_"+strings.ToLower(strings.ReplaceAll(header, "-", "_"))] = value
		}
	}

	return metadata
}

// writeResponse writes the handler response as an HTTP response
func (a *HTTPAdapter) writeResponse(w http.ResponseWriter, resp handler.Response, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", resp.ID)

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(handler.NewErrorResponse(
			resp.ID,
			"INTERNAL_ERROR",
			"Request processing failed",
			err.Error(),
		))
		return
	}

	w.WriteHeader(a.determineStatusCode(resp))
	json.NewEncoder(w).Encode(resp)
}

// writeErrorResponse writes an error response
func (a *HTTPAdapter) writeErrorResponse(w http.ResponseWriter, resp handler.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", resp.ID)

	w.WriteHeader(a.determineStatusCode(resp))
	json.NewEncoder(w).Encode(resp)
}

// determineStatusCode maps a response to an HTTP status code
func (a *HTTPAdapter) determineStatusCode(resp handler.Response) int {
	if resp.Success {
		return http.StatusOK
	}

	if resp.Error == nil {
		return http.StatusInternalServerError
	}

	switch resp.Error.Code {
	case "VALIDATION_ERROR", "INVALID_REQUEST", "INVALID_URL":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "TOO_MANY_REDIRECTS", "CIRCULAR_REDIRECT", "HTTP_STATUS", "TRANSPORT", "FILE_TOO_BIG":
		return http.StatusBadGateway
	case "TIMEOUT":
		return http.StatusGatewayTimeout
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Serve starts an HTTP server with the adapter.
// This is a convenience method for quick setup.
func (a *HTTPAdapter) Serve(addr string) error {
	return http.ListenAndServe(addr, a)
}
