// Package handler wraps a Worker with middleware and a platform-agnostic
// request/response envelope. Platform adapters (HTTP, Lambda, RabbitMQ)
// live in the platforms subpackage.
package handler

import (
	"context"

	"github.com/weheartit/whi-url-fetcher/config"
)

type contextKey string

// Context keys set by Handle for middleware and workers.
const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyWorker    contextKey = "worker"
	ContextKeyPlatform  contextKey = "platform"
)

// Handler wraps a Worker with middleware and platform adapters.
type Handler struct {
	worker      Worker
	middlewares []Middleware
	config      *config.HandlerConfig
}

// Middleware wraps the handler function to add cross-cutting concerns.
type Middleware func(next HandlerFunc) HandlerFunc

// HandlerFunc is the function signature for handling requests.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// NewHandler creates a new handler with the given worker and configuration.
func NewHandler(worker Worker, cfg *config.HandlerConfig) *Handler {
	return &Handler{
		worker:      worker,
		config:      cfg,
		middlewares: []Middleware{},
	}
}

// Use adds middleware to the handler chain.
// Middleware is executed in the order it's added.
func (h *Handler) Use(middleware Middleware) {
	h.middlewares = append(h.middlewares, middleware)
}

// Handle processes a request through the middleware chain and worker.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	handler := h.buildHandlerChain()

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	ctx = context.WithValue(ctx, ContextKeyRequestID, req.ID)
	ctx = context.WithValue(ctx, ContextKeyWorker, h.worker.Name())
	ctx = context.WithValue(ctx, ContextKeyPlatform, h.config.Platform)

	return handler(ctx, req)
}

// buildHandlerChain builds the middleware chain with the worker at the end.
// Middleware is applied in reverse order so that the first middleware
// added is the outermost layer.
func (h *Handler) buildHandlerChain() HandlerFunc {
	handler := h.workerHandler

	for i := len(h.middlewares) - 1; i >= 0; i-- {
		handler = h.middlewares[i](handler)
	}

	return handler
}

// workerHandler is the final handler that calls the worker.
func (h *Handler) workerHandler(ctx context.Context, req Request) (Response, error) {
	return h.worker.Process(ctx, req)
}

// Health checks the health of the worker.
func (h *Handler) Health(ctx context.Context) error {
	return h.worker.Health(ctx)
}

// Config returns the handler configuration.
func (h *Handler) Config() *config.HandlerConfig {
	return h.config
}

// Worker returns the underlying worker.
func (h *Handler) Worker() Worker {
	return h.worker
}
