package pattern

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Fold strips combining marks from s (é -> e, ñ -> n). The returned
// offsets map every byte of the folded string, plus its end, to a byte
// offset in s that starts a rune.
func Fold(s string) (string, []int) {
	var sb strings.Builder
	sb.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)

	for i, r := range s {
		out := foldRune(r)
		for j := 0; j < len(out); j++ {
			offsets = append(offsets, i)
		}
		sb.WriteString(out)
	}
	offsets = append(offsets, len(s))
	return sb.String(), offsets
}

// foldRune keeps r unless its canonical decomposition carries combining
// marks, in which case the base characters are returned.
func foldRune(r rune) string {
	if r < utf8.RuneSelf {
		return string(r)
	}
	dec := norm.NFD.String(string(r))
	var kept []rune
	dropped := false
	for _, d := range dec {
		if unicode.Is(unicode.Mn, d) {
			dropped = true
			continue
		}
		kept = append(kept, d)
	}
	if !dropped {
		return string(r)
	}
	return string(kept)
}
