package finder

import (
	"errors"

	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/finder/internal/highlight"
	"github.com/hazyhaar/advfind/finder/internal/pattern"
	"github.com/hazyhaar/advfind/finder/internal/proximity"
)

// Typed errors surfaced by the engine. Inspect them with errors.As.
type (
	// InvalidPatternError is a term that does not compile.
	InvalidPatternError = pattern.InvalidPatternError
	// TraversalError is a subtree the walker could not enter.
	TraversalError = dom.TraversalError
	// ProximityConstructionError is a proximity query that cannot be built.
	ProximityConstructionError = proximity.ConstructionError
	// MutationRaceError is a text node that changed between match and insert.
	MutationRaceError = highlight.MutationRaceError
)

var (
	// ErrNoUsableMatcher is returned when no term of a query compiled.
	ErrNoUsableMatcher = highlight.ErrNoUsableMatcher
	// ErrEmptyTerms is returned for a query without terms.
	ErrEmptyTerms = errors.New("finder: no search terms")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("finder: engine closed")
	// ErrNoQuery is returned by RestoreSaved when nothing is stored.
	ErrNoQuery = errors.New("finder: no saved query")
	// ErrUnknownPattern is returned by SearchPattern for an unknown id.
	ErrUnknownPattern = errors.New("finder: unknown pattern")
)
