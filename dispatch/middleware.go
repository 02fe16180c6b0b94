package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/hazyhaar/advfind/kit"
)

// HandlerMiddleware wraps the handler registered for service.
type HandlerMiddleware func(service string, next Handler) Handler

// Chain composes middlewares; the first one runs first.
func Chain(mws ...HandlerMiddleware) HandlerMiddleware {
	return func(service string, next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](service, next)
		}
		return next
	}
}

// Logging records each call at debug level, failures at error level, with
// the request identity carried by kit.
func Logging(logger *slog.Logger) HandlerMiddleware {
	return func(service string, next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			start := time.Now()
			resp, err := next(ctx, payload)
			attrs := []any{
				"service", service,
				"transport", kit.GetTransport(ctx),
				"request_id", kit.GetRequestID(ctx),
				"session_id", kit.GetSessionID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
				"payload_bytes", len(payload),
			}
			if err != nil {
				logger.ErrorContext(ctx, "dispatch: call failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.DebugContext(ctx, "dispatch: call ok", append(attrs, "response_bytes", len(resp))...)
			return resp, nil
		}
	}
}

// Timeout gives every call of service at most d. A handler that ignores
// its context still runs to completion.
func Timeout(d time.Duration) HandlerMiddleware {
	return func(service string, next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			resp, err := next(ctx, payload)
			if err != nil && ctx.Err() != nil {
				return resp, fmt.Errorf("dispatch: %s: %w", service, err)
			}
			return resp, err
		}
	}
}

// Recovery reports a handler panic as *ErrPanic.
func Recovery(logger *slog.Logger) HandlerMiddleware {
	return func(service string, next Handler) Handler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.ErrorContext(ctx, "dispatch: panic",
					"service", service,
					"panic", r,
					"stack", string(debug.Stack()))
				err = &ErrPanic{Service: service, Value: r}
			}()
			return next(ctx, payload)
		}
	}
}

// ErrPanic is a recovered handler panic.
type ErrPanic struct {
	Service string
	Value   any
}

func (e *ErrPanic) Error() string {
	return fmt.Sprintf("dispatch: %s: handler panicked: %v", e.Service, e.Value)
}
