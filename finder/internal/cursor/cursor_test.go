package cursor

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
)

func threeMarks(t *testing.T) (*dom.Document, []*html.Node) {
	t.Helper()
	doc, err := dom.ParseString(`<p><mark id="a">x</mark> <mark id="b">x</mark> <mark id="c">x</mark></p>`, "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var marks []*html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "mark" {
			marks = append(marks, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc.Root)
	return doc, marks
}

func currentCount(marks []*html.Node) int {
	n := 0
	for _, m := range marks {
		if dom.HasClass(m, "cur") {
			n++
		}
	}
	return n
}

func TestNextWrapsAround(t *testing.T) {
	doc, marks := threeMarks(t)
	c := New(doc, "cur")
	c.Reset(marks)

	for _, want := range []int{0, 1, 2, 0} {
		if got := c.Next(); got != want {
			t.Fatalf("next: got %d, want %d", got, want)
		}
		if n := currentCount(marks); n != 1 {
			t.Fatalf("current flags: got %d, want 1", n)
		}
	}
	if !dom.HasClass(marks[0], "cur") {
		t.Error("first mark should be current after wrap")
	}
}

func TestPreviousFromNone(t *testing.T) {
	doc, marks := threeMarks(t)
	c := New(doc, "cur")
	c.Reset(marks)

	if got := c.Previous(); got != 2 {
		t.Fatalf("previous from none: got %d, want 2", got)
	}
	if got := c.Previous(); got != 1 {
		t.Fatalf("previous: got %d, want 1", got)
	}
	if c.Current() != marks[1] {
		t.Error("current mark mismatch")
	}
}

func TestEmptyIsNoop(t *testing.T) {
	doc, _ := threeMarks(t)
	c := New(doc, "cur")
	if got := c.Next(); got != None {
		t.Errorf("next on empty: got %d, want %d", got, None)
	}
	if got := c.Previous(); got != None {
		t.Errorf("previous on empty: got %d, want %d", got, None)
	}
}

func TestScrollsOnlyWhenOffscreen(t *testing.T) {
	doc, marks := threeMarks(t)
	vp := &dom.RecordingViewport{Visible: func(n *html.Node) bool { return dom.Attr(n, "id") == "a" }}
	doc.Viewport = vp
	c := New(doc, "cur")
	c.Reset(marks)

	c.Next()
	c.Next()
	if len(vp.Scrolled) != 1 || vp.Scrolled[0] != marks[1] {
		t.Errorf("scrolled: got %d nodes, want only the second mark", len(vp.Scrolled))
	}
}

func TestResetClearsSelection(t *testing.T) {
	doc, marks := threeMarks(t)
	c := New(doc, "cur")
	c.Reset(marks)
	c.Next()
	c.Reset(marks[:2])
	if c.Index() != None {
		t.Errorf("index after reset: got %d", c.Index())
	}
	if n := currentCount(marks); n != 0 {
		t.Errorf("current flags after reset: got %d, want 0", n)
	}
}
