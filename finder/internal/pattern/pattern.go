// Package pattern compiles search terms into matchers. Literal, wildcard
// and raw (RE2) terms share one Matcher type; diacritic folding maps match
// offsets back onto the original text.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Options controls compilation.
type Options struct {
	CaseSensitive    bool
	WholeWords       bool
	UseRawPattern    bool
	IgnoreDiacritics bool
}

// Wildcard is the marker for "any run of characters" in literal terms.
const Wildcard = "*"

// Word and NonWord are Unicode character classes for word characters:
// letters, combining marks, digits and underscore. RE2's \w and \b only
// know ASCII.
const (
	Word    = `[\p{L}\p{M}\p{N}_]`
	NonWord = `[^\p{L}\p{M}\p{N}_]`
)

// ErrEmptyTerm is wrapped by InvalidPatternError for blank terms.
var ErrEmptyTerm = errors.New("empty term")

// InvalidPatternError reports a term that cannot be compiled.
type InvalidPatternError struct {
	Term string
	Err  error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("pattern: invalid pattern %q: %v", e.Term, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

// Match is a byte range into the searched text.
type Match struct {
	Start, End int
}

// Matcher finds every occurrence of a term. It holds no mutable state and
// may be shared.
type Matcher struct {
	Term string
	re   *regexp.Regexp
	fold bool
	// words restricts matches to whole words. The expression then carries
	// the match in group 1 followed by a consumed non-word character, and
	// the preceding character is checked by FindAll.
	words bool
}

// Compile builds a matcher for term.
func Compile(term string, opts Options) (*Matcher, error) {
	if term == "" {
		return nil, &InvalidPatternError{Term: term, Err: ErrEmptyTerm}
	}
	if opts.UseRawPattern {
		if _, err := regexp.Compile(term); err != nil {
			return nil, &InvalidPatternError{Term: term, Err: err}
		}
		return FromBody(term, term, opts)
	}
	return FromBody(term, Body(term, opts), opts)
}

// Body returns the escaped pattern text for a literal or wildcard term.
// Terms are folded first when diacritics are ignored. Word bounds are added
// by FromBody.
func Body(term string, opts Options) string {
	if opts.IgnoreDiacritics {
		term, _ = Fold(term)
	}
	var body string
	if strings.Contains(term, Wildcard) {
		parts := strings.Split(term, Wildcard)
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		body = strings.Join(parts, ".*?")
	} else {
		body = regexp.QuoteMeta(term)
	}
	return body
}

// FromBody compiles an already built pattern body with the flags implied by
// opts. Raw pattern bodies are never folded. With WholeWords, a match is
// neither preceded nor followed by a word character.
func FromBody(term, body string, opts Options) (*Matcher, error) {
	src := body
	if opts.WholeWords {
		src = `(` + body + `)(?:` + NonWord + `|$)`
	}
	if !opts.CaseSensitive {
		src = "(?i)" + src
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, &InvalidPatternError{Term: term, Err: err}
	}
	return &Matcher{
		Term: term,
		re:    re,
		fold:  opts.IgnoreDiacritics && !opts.UseRawPattern,
		words: opts.WholeWords,
	}, nil
}

// String returns the compiled expression.
func (m *Matcher) String() string { return m.re.String() }

// FindAll returns every non-empty, non-overlapping match in text.
func (m *Matcher) FindAll(text string) []Match {
	haystack := text
	var offsets []int
	if m.fold {
		haystack, offsets = Fold(text)
	}
	locs := m.find(haystack)
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if offsets != nil {
			start, end = offsets[start], offsets[end]
		}
		if end <= start {
			continue
		}
		out = append(out, Match{Start: start, End: end})
	}
	return out
}

// find returns the byte spans of the non-overlapping matches in h.
func (m *Matcher) find(h string) [][]int {
	if !m.words {
		return m.re.FindAllStringIndex(h, -1)
	}
	var out [][]int
	for pos := 0; pos <= len(h); {
		loc := m.re.FindStringSubmatchIndex(h[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[2], pos+loc[3]
		if end <= start || !wordStart(h, start) {
			_, size := utf8.DecodeRuneInString(h[start:])
			pos = start + max(size, 1)
			continue
		}
		out = append(out, []int{start, end})
		// The non-word character after the match may precede the next one.
		pos = end
	}
	return out
}

// wordStart reports whether the character before offset i of h is not a
// word character.
func wordStart(h string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(h[:i])
	return !IsWordRune(r)
}

// IsWordRune reports whether r belongs to Word.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

// MatchString reports whether text contains at least one match.
func (m *Matcher) MatchString(text string) bool {
	return len(m.FindAll(text)) > 0
}

// Count returns the number of matches in text.
func (m *Matcher) Count(text string) int {
	return len(m.FindAll(text))
}
