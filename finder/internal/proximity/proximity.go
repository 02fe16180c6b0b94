// Package proximity builds a single matcher finding two terms within a
// bounded distance of each other, and validates proximity marks against
// their block container.
package proximity

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/finder/internal/pattern"
)

// Unit is the distance unit.
type Unit string

const (
	Words Unit = "words"
	Chars Unit = "chars"
)

// DefaultContainerTags are the paragraph-like elements a same-container
// match must share.
var DefaultContainerTags = []string{"p", "li", "blockquote", "dt", "dd", "address", "td", "th"}

// Spec describes a proximity search.
type Spec struct {
	Term1, Term2  string
	MaxDistance   int
	Unit          Unit
	RequireOrder  bool
	SameContainer bool
}

// ConstructionError reports a proximity pattern that cannot be built.
type ConstructionError struct {
	Term1, Term2 string
	Err          error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("proximity: cannot combine %q and %q: %v", e.Term1, e.Term2, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Label is the term identifier stored on proximity marks.
func (s Spec) Label() string { return s.Term1 + " ~ " + s.Term2 }

// Compile returns one matcher covering both orders unless RequireOrder is
// set. Quantifiers are non-greedy so a match spans only the text enclosing
// the two terms.
func Compile(s Spec, opts pattern.Options) (*pattern.Matcher, error) {
	fail := func(err error) error { return &ConstructionError{Term1: s.Term1, Term2: s.Term2, Err: err} }

	if opts.UseRawPattern {
		return nil, fail(errors.New("raw patterns are not supported"))
	}
	if s.Term1 == "" || s.Term2 == "" {
		return nil, fail(pattern.ErrEmptyTerm)
	}
	if s.MaxDistance < 0 {
		return nil, fail(fmt.Errorf("negative distance %d", s.MaxDistance))
	}

	between, err := intervening(s, opts.WholeWords)
	if err != nil {
		return nil, fail(err)
	}

	t1 := pattern.Body(s.Term1, opts)
	t2 := pattern.Body(s.Term2, opts)
	body := "(?:" + t1 + between + t2 + ")"
	if !s.RequireOrder {
		body += "|(?:" + t2 + between + t1 + ")"
	}

	m, err := pattern.FromBody(s.Label(), body, opts)
	if err != nil {
		return nil, fail(err)
	}
	return m, nil
}

// intervening returns the pattern allowed between the two terms. Word
// distance counts Unicode words. With whole words the terms must be
// separated by at least one non-word character; in character units that
// separator counts toward the distance.
func intervening(s Spec, wholeWords bool) (string, error) {
	n := s.MaxDistance
	switch s.Unit {
	case Words, "":
		tail := `*?`
		if wholeWords {
			tail = `+?`
		}
		return `(?:` + pattern.NonWord + `+` + pattern.Word + `+){0,` + strconv.Itoa(n) + `}?` + pattern.NonWord + tail, nil
	case Chars:
		if !wholeWords {
			return `[\s\S]{0,` + strconv.Itoa(n) + `}?`, nil
		}
		switch {
		case n == 0:
			return `[^\s\S]`, nil
		case n == 1:
			return pattern.NonWord, nil
		default:
			return pattern.NonWord + `(?:[\s\S]{0,` + strconv.Itoa(n-2) + `}?` + pattern.NonWord + `)?`, nil
		}
	}
	return "", fmt.Errorf("unknown unit %q", s.Unit)
}

// Validator checks a proximity match against its block container.
type Validator struct {
	m1, m2    *pattern.Matcher
	container map[string]bool
}

// NewValidator compiles the single-term matchers used for validation.
func NewValidator(s Spec, opts pattern.Options, containerTags []string) (*Validator, error) {
	m1, err := pattern.Compile(s.Term1, opts)
	if err != nil {
		return nil, &ConstructionError{Term1: s.Term1, Term2: s.Term2, Err: err}
	}
	m2, err := pattern.Compile(s.Term2, opts)
	if err != nil {
		return nil, &ConstructionError{Term1: s.Term1, Term2: s.Term2, Err: err}
	}
	if containerTags == nil {
		containerTags = DefaultContainerTags
	}
	tags := make(map[string]bool, len(containerTags))
	for _, t := range containerTags {
		tags[t] = true
	}
	return &Validator{m1: m1, m2: m2, container: tags}, nil
}

// Container returns the nearest paragraph-like ancestor of n, or nil.
func (v *Validator) Container(n *html.Node) *html.Node {
	return dom.Closest(n, v.container)
}

// Valid reports whether mark sits inside a container and both terms occur
// within the mark's own text.
func (v *Validator) Valid(mark *html.Node) bool {
	return v.ValidSpan(mark, mark, dom.TextContent(mark))
}

// ValidSpan is Valid for a match that has not been marked: first and last
// are the text nodes holding its two ends, which must share a container.
// The offsets checked are those of the combined match, not any occurrence
// elsewhere in the container.
func (v *Validator) ValidSpan(first, last *html.Node, matchText string) bool {
	c := v.Container(first)
	if c == nil || c != v.Container(last) {
		return false
	}
	return v.m1.MatchString(matchText) && v.m2.MatchString(matchText)
}
