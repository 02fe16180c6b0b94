// Package shield is the HTTP middleware stack of the advfind API: response
// headers, request body limits, request ids and HEAD handling.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.Stack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"
)

// DefaultMaxBody bounds request bodies. Whole HTML documents are posted to
// open sessions, so the limit is generous.
const DefaultMaxBody = 16 << 20

// Stack returns the middleware applied to every API route, outermost first.
func Stack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(DefaultMaxBody),
		RequestID(logger),
	}
}
