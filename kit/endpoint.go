// Package kit holds the transport-neutral endpoint type shared by the MCP
// and HTTP surfaces, plus the request-scoped context values they set.
package kit

import "context"

// Endpoint is a typed service call: the request is a decoded struct
// pointer, the response is JSON-marshalled by the transport.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(next Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
