package browser

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
)

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "fonts": true, "stylesheets": true}
	tests := []struct {
		typ  string
		want bool
	}{
		{"Image", true},
		{"Font", true},
		{"Media", false},
		{"Stylesheet", false},
		{"Document", false},
	}
	for _, tt := range tests {
		if got := shouldBlock(set, tt.typ); got != tt.want {
			t.Errorf("shouldBlock(%q): got %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestIframesSkipsTemplates(t *testing.T) {
	root, err := html.Parse(strings.NewReader(`<body>
<iframe id="one"></iframe>
<div><template shadowrootmode="open"><iframe id="shadow"></iframe></template></div>
<iframe id="two"></iframe></body>`))
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, n := range Iframes(root) {
		ids = append(ids, dom.Attr(n, "id"))
	}
	if strings.Join(ids, ",") != "one,two" {
		t.Errorf("iframes: got %v, want [one two]", ids)
	}
}

func TestComputedStyle(t *testing.T) {
	style := Computed()
	flagged := dom.Element("div", html.Attribute{Key: HiddenAttr})
	inline := dom.Element("div", html.Attribute{Key: "style", Val: "display: none"})
	shown := dom.Element("div")

	if !style.Hidden(flagged) {
		t.Error("flagged element reported visible")
	}
	if !style.Hidden(inline) {
		t.Error("inline hidden element reported visible")
	}
	if style.Hidden(shown) {
		t.Error("plain element reported hidden")
	}
}

func TestClosedLoader(t *testing.T) {
	l := New(Config{})
	l.Close()
	if _, err := l.Load(t.Context(), "https://example.com"); err == nil {
		t.Error("expected error from a closed loader")
	}
}
