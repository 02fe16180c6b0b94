package finder

import (
	"context"
	"fmt"

	"github.com/hazyhaar/advfind/kit"
)

// Service names shared by the dispatch router, the MCP server and the HTTP
// API.
const (
	ServiceSearch          = "advfind_search"
	ServiceSearchProximity = "advfind_search_proximity"
	ServiceClear           = "advfind_clear"
	ServiceNavigate        = "advfind_navigate"
	ServiceCount           = "advfind_count"
	ServiceExport          = "advfind_export"
	ServiceRestore         = "advfind_restore"
	ServiceSearchPattern   = "advfind_search_pattern"
)

type searchReq struct {
	Terms   []string `json:"terms"`
	Options Options  `json:"options"`
}

type proximityReq struct {
	Term1         string  `json:"term1"`
	Term2         string  `json:"term2"`
	MaxDistance   int     `json:"maxDistance"`
	Unit          Unit    `json:"unit,omitempty"`
	RequireOrder  bool    `json:"requireOrder,omitempty"`
	SameContainer bool    `json:"sameContainer,omitempty"`
	Options       Options `json:"options"`
}

type navigateReq struct {
	Direction Direction `json:"direction"`
}

type countReq struct {
	Terms     []string       `json:"terms"`
	Options   Options        `json:"options"`
	Proximity *ProximitySpec `json:"proximity,omitempty"`
}

type restoreReq struct {
	Terms     []string       `json:"terms"`
	Options   Options        `json:"options"`
	Proximity *ProximitySpec `json:"proximity,omitempty"`
	// Saved restores the persisted query of the page instead.
	Saved bool `json:"saved,omitempty"`
}

type patternReq struct {
	PatternID string  `json:"patternId"`
	Options   Options `json:"options"`
}

type empty struct{}

// service describes one engine operation for every transport.
type service struct {
	name        string
	description string
	schema      map[string]any
	newReq      func() any
	call        kit.Endpoint
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var (
	termsSchema = map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Search terms; '*' is a wildcard unless useRegex is set",
	}
	optionsSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"caseSensitive":    map[string]any{"type": "boolean"},
			"wholeWords":       map[string]any{"type": "boolean"},
			"useRegex":         map[string]any{"type": "boolean"},
			"ignoreDiacritics": map[string]any{"type": "boolean"},
			"excludeTerm":      map[string]any{"type": "string"},
		},
	}
	proximitySchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"secondTerm":    map[string]any{"type": "string"},
			"maxDistance":   map[string]any{"type": "integer"},
			"unit":          map[string]any{"type": "string", "enum": []string{"words", "chars"}},
			"requireOrder":  map[string]any{"type": "boolean"},
			"sameContainer": map[string]any{"type": "boolean"},
		},
	}
)

func (e *Engine) services() []service {
	svcs := []service{
		{
			name:        ServiceSearch,
			description: "Highlight every occurrence of one or more terms in the page.",
			schema:      inputSchema(map[string]any{"terms": termsSchema, "options": optionsSchema}, []string{"terms"}),
			newReq:      func() any { return new(searchReq) },
			call: func(ctx context.Context, req any) (any, error) {
				r := req.(*searchReq)
				return e.Search(ctx, r.Terms, r.Options)
			},
		},
		{
			name:        ServiceSearchProximity,
			description: "Highlight spans where two terms occur within a maximum distance of each other.",
			schema: inputSchema(map[string]any{
				"term1":         map[string]any{"type": "string"},
				"term2":         map[string]any{"type": "string"},
				"maxDistance":   map[string]any{"type": "integer", "description": "Maximum words or characters between the terms"},
				"unit":          map[string]any{"type": "string", "enum": []string{"words", "chars"}},
				"requireOrder":  map[string]any{"type": "boolean"},
				"sameContainer": map[string]any{"type": "boolean"},
				"options":       optionsSchema,
			}, []string{"term1", "term2", "maxDistance"}),
			newReq: func() any { return new(proximityReq) },
			call: func(ctx context.Context, req any) (any, error) {
				r := req.(*proximityReq)
				p := ProximitySpec{
					MaxDistance:   r.MaxDistance,
					Unit:          r.Unit,
					RequireOrder:  r.RequireOrder,
					SameContainer: r.SameContainer,
				}
				return e.SearchProximity(ctx, r.Term1, r.Term2, p, r.Options)
			},
		},
		{
			name:        ServiceClear,
			description: "Remove every highlight and forget the last query.",
			schema:      inputSchema(map[string]any{}, nil),
			newReq:      func() any { return new(empty) },
			call: func(ctx context.Context, _ any) (any, error) {
				if err := e.Clear(ctx); err != nil {
					return nil, err
				}
				return map[string]bool{"cleared": true}, nil
			},
		},
		{
			name:        ServiceNavigate,
			description: "Move the current highlight to the next or previous match, wrapping around.",
			schema: inputSchema(map[string]any{
				"direction": map[string]any{"type": "string", "enum": []string{"next", "previous"}},
			}, nil),
			newReq: func() any { return new(navigateReq) },
			call: func(ctx context.Context, req any) (any, error) {
				r := req.(*navigateReq)
				switch r.Direction {
				case "", Next, Previous:
				default:
					return nil, fmt.Errorf("finder: navigate: unknown direction %q", r.Direction)
				}
				return e.Navigate(ctx, r.Direction)
			},
		},
		{
			name:        ServiceCount,
			description: "Count matches without highlighting them.",
			schema:      inputSchema(map[string]any{"terms": termsSchema, "options": optionsSchema, "proximity": proximitySchema}, []string{"terms"}),
			newReq:      func() any { return new(countReq) },
			call: func(ctx context.Context, req any) (any, error) {
				r := req.(*countReq)
				return e.Count(ctx, SearchSpec{Terms: r.Terms, Options: r.Options, Proximity: r.Proximity})
			},
		},
		{
			name:        ServiceExport,
			description: "List the current highlights with their surrounding text.",
			schema:      inputSchema(map[string]any{}, nil),
			newReq:      func() any { return new(empty) },
			call: func(ctx context.Context, _ any) (any, error) {
				recs, err := e.ExportMatches(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"matches": recs, "count": len(recs)}, nil
			},
		},
		{
			name:        ServiceRestore,
			description: "Re-apply a stored query, or the query saved for this page when saved is true.",
			schema: inputSchema(map[string]any{
				"terms":     termsSchema,
				"options":   optionsSchema,
				"proximity": proximitySchema,
				"saved":     map[string]any{"type": "boolean"},
			}, nil),
			newReq: func() any { return new(restoreReq) },
			call: func(ctx context.Context, req any) (any, error) {
				r := req.(*restoreReq)
				if r.Saved {
					return e.RestoreSaved(ctx)
				}
				return e.Restore(ctx, r.Terms, r.Options, r.Proximity)
			},
		},
		{
			name:        ServiceSearchPattern,
			description: "Highlight the matches of a pattern-library entry.",
			schema: inputSchema(map[string]any{
				"patternId": map[string]any{"type": "string"},
				"options":   optionsSchema,
			}, []string{"patternId"}),
			newReq: func() any { return new(patternReq) },
			call: func(ctx context.Context, req any) (any, error) {
				r := req.(*patternReq)
				return e.SearchPattern(ctx, r.PatternID, r.Options)
			},
		},
	}
	if e.serviceMW != nil {
		for i := range svcs {
			svcs[i].call = e.serviceMW(svcs[i].name)(svcs[i].call)
		}
	}
	return svcs
}
