package finder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/advfind/dispatch"
)

// RegisterConnectivity registers the engine operations on a dispatch
// Router.
//
// Registered services:
//
//	advfind_search             highlight terms
//	advfind_search_proximity   highlight two terms near each other
//	advfind_clear              remove highlights
//	advfind_navigate           move the current highlight
//	advfind_count              count without highlighting
//	advfind_export             list highlights with context
//	advfind_restore            re-apply a stored query
//	advfind_search_pattern     highlight a pattern-library entry
func (e *Engine) RegisterConnectivity(router *dispatch.Router) {
	for _, s := range e.services() {
		router.RegisterLocal(s.name, handler(s))
	}
}

func handler(s service) dispatch.Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		req := s.newReq()
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, req); err != nil {
				return nil, fmt.Errorf("decode: %w", err)
			}
		}
		resp, err := s.call(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	}
}
