// Package exclude suppresses matches that appear next to a forbidden term.
package exclude

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/advfind/finder/internal/pattern"
)

// DefaultContextWords is the number of words inspected on each side.
const DefaultContextWords = 3

// Filter reports whether a match is kept. candidateText is the whole text
// segment, matchOffset the byte offset of matchText inside it.
type Filter func(candidateText, matchText string, matchOffset int) bool

// Keep is the no-op filter.
func Keep(string, string, int) bool { return true }

// Options are the search flags the exclude term follows.
type Options struct {
	CaseSensitive    bool
	IgnoreDiacritics bool
}

// Build returns a filter rejecting matches that contain term or that have
// term within contextWords words before or after them in the same segment.
// An empty term yields Keep.
func Build(term string, opts Options, contextWords int) Filter {
	if term == "" {
		return Keep
	}
	if contextWords < 0 {
		contextWords = DefaultContextWords
	}
	fold := func(s string) string { return s }
	if opts.IgnoreDiacritics {
		fold = func(s string) string {
			f, _ := pattern.Fold(s)
			return f
		}
	}
	src := regexp.QuoteMeta(fold(term))
	if !opts.CaseSensitive {
		src = "(?i)" + src
	}
	re := regexp.MustCompile(src)
	found := func(s string) bool { return re.MatchString(fold(s)) }

	return func(candidateText, matchText string, matchOffset int) bool {
		if found(matchText) {
			return false
		}
		if matchOffset < 0 || matchOffset+len(matchText) > len(candidateText) {
			return true
		}
		before := lastWords(candidateText[:matchOffset], contextWords)
		after := firstWords(candidateText[matchOffset+len(matchText):], contextWords)
		return !found(before + " " + matchText + " " + after)
	}
}

func lastWords(s string, n int) string {
	f := strings.Fields(s)
	if len(f) > n {
		f = f[len(f)-n:]
	}
	return strings.Join(f, " ")
}

func firstWords(s string, n int) string {
	f := strings.Fields(s)
	if len(f) > n {
		f = f[:n]
	}
	return strings.Join(f, " ")
}
