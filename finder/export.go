package finder

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/finder/internal/highlight"
)

// exportRecord snapshots one match from its marks. Context is the run of
// text siblings on each side, up to chars runes, formatted
// "before **text** after".
func exportRecord(group []*html.Node, chars int) ExportRecord {
	mark := group[0]
	text := highlight.GroupText(group)
	before := textBefore(mark, chars)
	after := textAfter(group[len(group)-1], chars)

	rec := ExportRecord{
		Text:        text,
		Term:        dom.Attr(mark, highlight.AttrTerm),
		Context:     strings.Join(strings.Fields(before+" **"+text+"** "+after), " "),
		IsProximity: dom.Attr(mark, highlight.AttrProximity) == "true",
	}
	if id := dom.Attr(mark, highlight.AttrPatternID); id != "" {
		rec.Pattern = &PatternMetadata{
			ID:            id,
			Label:         dom.Attr(mark, highlight.AttrPatternLabel),
			CategoryID:    dom.Attr(mark, highlight.AttrCategoryID),
			CategoryLabel: dom.Attr(mark, highlight.AttrCategoryLabel),
		}
		if tags := dom.Attr(mark, highlight.AttrPatternTags); tags != "" {
			rec.Pattern.Tags = strings.Split(tags, ",")
		}
	}
	return rec
}

func textBefore(n *html.Node, chars int) string {
	var b string
	for s := n.PrevSibling; s != nil && s.Type == html.TextNode; s = s.PrevSibling {
		if utf8.RuneCountInString(b) >= chars {
			break
		}
		b = s.Data + b
	}
	return lastRunes(b, chars)
}

func textAfter(n *html.Node, chars int) string {
	var b strings.Builder
	for s := n.NextSibling; s != nil && s.Type == html.TextNode; s = s.NextSibling {
		if utf8.RuneCountInString(b.String()) >= chars {
			break
		}
		b.WriteString(s.Data)
	}
	return firstRunes(b.String(), chars)
}

func lastRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
