// Package dispatch routes page-boundary requests to in-process handlers by
// service name. Transports (HTTP, MCP, CLI) decode their input into a JSON
// payload and call the router; none of them knows the engine API.
//
//	r := dispatch.New(dispatch.WithLogger(logger))
//	r.RegisterLocal("advfind_search", searchHandler)
//	resp, err := r.Call(ctx, "advfind_search", payload)
package dispatch

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Handler is a transport-agnostic service function: bytes in, bytes out.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// Router dispatches service calls. Safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	mw       HandlerMiddleware
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets a custom logger for the router.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMiddleware wraps every registered handler.
func WithMiddleware(mws ...HandlerMiddleware) Option {
	return func(r *Router) { r.mw = Chain(mws...) }
}

// New creates an empty Router.
func New(opts ...Option) *Router {
	r := &Router{
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RegisterLocal registers h for service, replacing any previous handler.
func (r *Router) RegisterLocal(service string, h Handler) {
	if r.mw != nil {
		h = r.mw(service, h)
	}
	r.mu.Lock()
	r.handlers[service] = h
	r.mu.Unlock()
}

// Call dispatches payload to the handler of service.
func (r *Router) Call(ctx context.Context, service string, payload []byte) ([]byte, error) {
	r.mu.RLock()
	h := r.handlers[service]
	r.mu.RUnlock()

	if h == nil {
		return nil, &ErrServiceNotFound{Service: service}
	}
	r.logger.DebugContext(ctx, "dispatch: call", "service", service, "payload_bytes", len(payload))
	return h(ctx, payload)
}

// Has reports whether service is registered.
func (r *Router) Has(service string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[service]
	return ok
}

// Services yields the registered service names in sorted order.
func (r *Router) Services() iter.Seq[string] {
	r.mu.RLock()
	names := slices.Sorted(maps.Keys(r.handlers))
	r.mu.RUnlock()
	return slices.Values(names)
}

// ErrServiceNotFound is returned when Call targets an unknown service.
type ErrServiceNotFound struct {
	Service string
}

func (e *ErrServiceNotFound) Error() string {
	return fmt.Sprintf("dispatch: service not registered: %s", e.Service)
}
