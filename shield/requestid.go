package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/advfind/idgen"
	"github.com/hazyhaar/advfind/kit"
)

type contextKey string

// LoggerKey holds the per-request logger.
const LoggerKey contextKey = "shield_logger"

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID tags each request with an id, taken from X-Request-ID when the
// client sent a valid UUID and generated otherwise. The id goes into the
// context (kit.RequestIDKey), the response header and a per-request
// logger. The transport is recorded as "http".
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if !idgen.Valid(id) {
				id = idgen.New()
			}
			w.Header().Set(HeaderRequestID, id)

			ctx := kit.WithTransport(r.Context(), "http")
			ctx = kit.WithRequestID(ctx, id)
			l := logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			ctx = context.WithValue(ctx, LoggerKey, l)
			l.Debug("shield: request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the per-request logger, or slog.Default().
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
