package render

import (
	"strings"
	"testing"

	"github.com/hazyhaar/advfind/finder/dom"
)

const highlighted = `<html><head><script>alert(1)</script></head><body>
<p onclick="x()">The <mark class="afe-highlight afe-highlight-term-0" data-afe-term="cat">cat</mark> sat.</p>
</body></html>`

func parse(t *testing.T) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(highlighted, "https://example.com/a")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestSafeHTML(t *testing.T) {
	out := New("").SafeHTML(parse(t))
	if strings.Contains(out, "alert") || strings.Contains(out, "onclick") {
		t.Errorf("unsafe content kept: %s", out)
	}
	for _, want := range []string{`<mark`, `class="afe-highlight afe-highlight-term-0"`, `data-afe-term="cat"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestMarkdown(t *testing.T) {
	out, err := New("").Markdown(parse(t))
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.Contains(out, "The ==cat== sat.") {
		t.Errorf("markdown: got %q", out)
	}
}

func TestWriteHTML(t *testing.T) {
	var sb strings.Builder
	if err := New("").Write(&sb, parse(t), FormatHTML); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(sb.String(), `data-afe-term="cat"`) {
		t.Errorf("html: got %s", sb.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatHTML, true},
		{"md", FormatMarkdown, true},
		{"markdown", FormatMarkdown, true},
		{"safe-html", FormatSafeHTML, true},
		{"pdf", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q): got %q, %v", tt.in, got, err)
		}
	}
}
