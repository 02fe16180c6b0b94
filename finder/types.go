package finder

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/advfind/finder/internal/highlight"
	"github.com/hazyhaar/advfind/finder/internal/pattern"
	"github.com/hazyhaar/advfind/finder/internal/proximity"
)

// Options are the search flags. The zero value is a case-insensitive
// literal search.
type Options struct {
	CaseSensitive    bool   `json:"caseSensitive,omitempty"`
	WholeWords       bool   `json:"wholeWords,omitempty"`
	UseRawPattern    bool   `json:"useRegex,omitempty"`
	IgnoreDiacritics bool   `json:"ignoreDiacritics,omitempty"`
	ExcludeTerm      string `json:"excludeTerm,omitempty"`
}

// Validate checks the option combination. It runs once per public call.
func (o Options) Validate() error {
	if o.ExcludeTerm != "" && strings.TrimSpace(o.ExcludeTerm) == "" {
		return fmt.Errorf("finder: options: blank exclude term %q", o.ExcludeTerm)
	}
	return nil
}

func (o Options) compile() pattern.Options {
	return pattern.Options{
		CaseSensitive:    o.CaseSensitive,
		WholeWords:       o.WholeWords,
		UseRawPattern:    o.UseRawPattern,
		IgnoreDiacritics: o.IgnoreDiacritics,
	}
}

// Unit is the proximity distance unit.
type Unit = proximity.Unit

// Distance units.
const (
	Words = proximity.Words
	Chars = proximity.Chars
)

// ProximitySpec qualifies a two-term proximity search. The first term is
// SearchSpec.Terms[0].
type ProximitySpec struct {
	SecondTerm    string `json:"secondTerm"`
	MaxDistance   int    `json:"maxDistance"`
	Unit          Unit   `json:"unit,omitempty"`
	RequireOrder  bool   `json:"requireOrder,omitempty"`
	SameContainer bool   `json:"sameContainer,omitempty"`
}

// Validate checks the distance parameters.
func (p ProximitySpec) Validate() error {
	if p.MaxDistance < 0 {
		return fmt.Errorf("finder: proximity: negative distance %d", p.MaxDistance)
	}
	switch p.Unit {
	case "", Words, Chars:
	default:
		return fmt.Errorf("finder: proximity: unknown unit %q", p.Unit)
	}
	return nil
}

func (p ProximitySpec) spec(term1 string) proximity.Spec {
	unit := p.Unit
	if unit == "" {
		unit = Words
	}
	return proximity.Spec{
		Term1:         term1,
		Term2:         p.SecondTerm,
		MaxDistance:   p.MaxDistance,
		Unit:          unit,
		RequireOrder:  p.RequireOrder,
		SameContainer: p.SameContainer,
	}
}

// PatternMetadata identifies a pattern-library entry.
type PatternMetadata struct {
	ID            string   `json:"patternId"`
	Label         string   `json:"patternLabel"`
	CategoryID    string   `json:"patternCategoryId"`
	CategoryLabel string   `json:"patternCategoryLabel"`
	Tags          []string `json:"patternTags"`
}

func (m *PatternMetadata) meta() *highlight.Meta {
	if m == nil {
		return nil
	}
	return &highlight.Meta{
		PatternID:     m.ID,
		PatternLabel:  m.Label,
		CategoryID:    m.CategoryID,
		CategoryLabel: m.CategoryLabel,
		Tags:          m.Tags,
	}
}

// SearchSpec is one complete query. It is what LastQuery holds and what
// replays and restores re-apply.
type SearchSpec struct {
	Terms     []string         `json:"terms"`
	Options   Options          `json:"options"`
	Proximity *ProximitySpec   `json:"proximity,omitempty"`
	Pattern   *PatternMetadata `json:"pattern,omitempty"`
}

// Validate checks the query once at the API boundary.
func (s SearchSpec) Validate() error {
	if len(s.Terms) == 0 {
		return ErrEmptyTerms
	}
	if err := s.Options.Validate(); err != nil {
		return err
	}
	if s.Proximity != nil {
		if err := s.Proximity.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s SearchSpec) request() highlight.Request {
	req := highlight.Request{
		Terms:       s.Terms,
		Options:     s.Options.compile(),
		ExcludeTerm: s.Options.ExcludeTerm,
		Meta:        s.Pattern.meta(),
	}
	if s.Proximity != nil {
		sp := s.Proximity.spec(s.Terms[0])
		req.Proximity = &sp
	}
	return req
}

// clone returns a deep copy so LastQuery is never aliased by callers.
func (s SearchSpec) clone() *SearchSpec {
	c := s
	c.Terms = append([]string(nil), s.Terms...)
	if s.Proximity != nil {
		p := *s.Proximity
		c.Proximity = &p
	}
	if s.Pattern != nil {
		m := *s.Pattern
		m.Tags = append([]string(nil), s.Pattern.Tags...)
		c.Pattern = &m
	}
	return &c
}

// TermCount is the contribution of one term.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// Result reports an applied search.
type Result struct {
	Count   int         `json:"count"`
	PerTerm []TermCount `json:"perTerm"`
}

// CountResult reports a read-only count.
type CountResult struct {
	Total   int         `json:"total"`
	PerTerm []TermCount `json:"perTerm"`
}

func perTerm(res highlight.Result) []TermCount {
	out := make([]TermCount, 0, len(res.Terms))
	for _, t := range res.Terms {
		tc := TermCount{Term: t.Term, Count: t.Count}
		if t.Err != nil {
			tc.Error = t.Err.Error()
		}
		out = append(out, tc)
	}
	return out
}

// Direction is a navigation step.
type Direction string

const (
	Next     Direction = "next"
	Previous Direction = "previous"
)

// NavState is the cursor position after a navigation. Index is -1 when
// there is nothing to select.
type NavState struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text,omitempty"`
	Term  string `json:"term,omitempty"`
	ID    string `json:"id,omitempty"`
}

// ExportRecord is one mark with its surrounding text.
type ExportRecord struct {
	Text        string           `json:"text"`
	Term        string           `json:"term"`
	Context     string           `json:"context"`
	IsProximity bool             `json:"isProximity"`
	Pattern     *PatternMetadata `json:"pattern,omitempty"`
}
