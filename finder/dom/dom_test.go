package dom

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, src, rawURL string) *Document {
	t.Helper()
	d, err := ParseString(src, rawURL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && Attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findByID(c, id); f != nil {
			return f
		}
	}
	return nil
}

func TestObserveDeliversRecords(t *testing.T) {
	d := mustParse(t, `<p id="p">hello</p>`, "")
	p := findByID(d.Root, "p")

	var got []Record
	obs := d.Observe(func(recs []Record) { got = append(got, recs...) })

	d.SetText(p.FirstChild, "world")
	if err := d.AppendChild(p, Text("!")); err != nil {
		t.Fatalf("append: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("records: got %d, want 2", len(got))
	}
	if got[0].Op != OpText || got[0].OldValue != "hello" {
		t.Errorf("record[0]: got %s %q, want text %q", got[0].Op, got[0].OldValue, "hello")
	}
	if got[1].Op != OpInsert || got[1].Target != p {
		t.Errorf("record[1]: got %s, want insert on <p>", got[1].Op)
	}

	obs.Disconnect()
	d.SetText(p.FirstChild, "again")
	if len(got) != 2 {
		t.Errorf("after disconnect: got %d records, want 2", len(got))
	}
}

func TestBatchDeliversOnce(t *testing.T) {
	d := mustParse(t, `<p id="p">a</p>`, "")
	p := findByID(d.Root, "p")

	deliveries := 0
	d.Observe(func([]Record) { deliveries++ })

	d.Batch(func() {
		d.SetText(p.FirstChild, "b")
		d.Batch(func() {
			d.SetText(p.FirstChild, "c")
		})
		if deliveries != 0 {
			t.Errorf("delivered inside batch")
		}
	})
	if deliveries != 1 {
		t.Errorf("deliveries: got %d, want 1", deliveries)
	}
}

func TestUnwrapAndNormalize(t *testing.T) {
	d := mustParse(t, `<p id="p">one <span id="s">two</span> three</p>`, "")
	p := findByID(d.Root, "p")
	s := findByID(d.Root, "s")

	if err := d.Unwrap(s); err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	d.Normalize(p)

	if p.FirstChild == nil || p.FirstChild != p.LastChild {
		t.Fatalf("normalize: want a single text child")
	}
	if got := p.FirstChild.Data; got != "one two three" {
		t.Errorf("text: got %q, want %q", got, "one two three")
	}
}

func TestClassHelpers(t *testing.T) {
	d := mustParse(t, `<span id="s" class="a">x</span>`, "")
	s := findByID(d.Root, "s")

	d.AddClass(s, "b")
	d.AddClass(s, "b")
	if got := Attr(s, "class"); got != "a b" {
		t.Errorf("add: got %q, want %q", got, "a b")
	}
	d.RemoveClass(s, "a")
	if got := Attr(s, "class"); got != "b" {
		t.Errorf("remove: got %q, want %q", got, "b")
	}
}

func TestInlineStyleHidden(t *testing.T) {
	tests := []struct {
		src    string
		hidden bool
	}{
		{`<div id="x">v</div>`, false},
		{`<div id="x" hidden>v</div>`, true},
		{`<div id="x" style="display: none">v</div>`, true},
		{`<div id="x" style="color:red; visibility:hidden">v</div>`, true},
		{`<div id="x" style="opacity: 0">v</div>`, true},
		{`<div id="x" style="opacity: 0.5">v</div>`, false},
		{`<div id="x" style="height: 0px">v</div>`, true},
		{`<div id="x" style="display:block">v</div>`, false},
		{`<div id="x" style="display:none;">v</div>`, true},
		{`<div id="x" style="  color: red; opacity: 0;  ">v</div>`, true},
		{`<div id="x" style="width:0">v</div>`, true},
		{`<div id="x" style="color: blue">v</div>`, false},
	}
	for _, tt := range tests {
		d := mustParse(t, tt.src, "")
		x := findByID(d.Root, "x")
		if got := (InlineStyle{}).Hidden(x); got != tt.hidden {
			t.Errorf("%s: got hidden=%v, want %v", tt.src, got, tt.hidden)
		}
	}
}

func TestSrcdocFrameIsSameOrigin(t *testing.T) {
	d := mustParse(t, `<iframe id="f" srcdoc="<p>inside</p>"></iframe>`, "https://example.com/page")
	f := findByID(d.Root, "f")

	root, err := d.FrameContent(f)
	if err != nil {
		t.Fatalf("frame content: %v", err)
	}
	if root == nil || !strings.Contains(TextContent(root), "inside") {
		t.Fatalf("frame content: want parsed srcdoc")
	}
}

func TestCrossOriginFrame(t *testing.T) {
	d := mustParse(t, `<iframe id="f" src="https://other.example/"></iframe>`, "https://example.com/")
	f := findByID(d.Root, "f")
	froot, _ := html.Parse(strings.NewReader(`<p>secret</p>`))
	if err := d.AttachFrame(f, froot, "https://other.example/"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	_, err := d.FrameContent(f)
	var te *TraversalError
	if !errors.As(err, &te) {
		t.Fatalf("want TraversalError, got %v", err)
	}
}

func TestRenderWritesFrameBack(t *testing.T) {
	d := mustParse(t, `<iframe id="f" srcdoc="<p>old</p>"></iframe>`, "")
	f := findByID(d.Root, "f")
	root, _ := d.FrameContent(f)

	var text *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.TextNode && n.Data == "old" {
			text = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)
	if text == nil {
		t.Fatal("frame text not found")
	}
	d.SetText(text, "new")

	if out := d.String(); !strings.Contains(out, "new") {
		t.Errorf("render: frame change missing in %q", out)
	}
}
