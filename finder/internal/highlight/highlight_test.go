package highlight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/finder/internal/pattern"
	"github.com/hazyhaar/advfind/finder/internal/proximity"
	"github.com/hazyhaar/advfind/idgen"
)

const article = `<html><head><title>t</title></head><body>
<h1>Banks of the river</h1>
<p>The river bank was muddy. The money bank was closed.</p>
<ul><li>alpha one two beta</li><li>alpha one two three beta</li></ul>
<div>alpha beta outside any paragraph</div>
<p>foobar foar foxbank</p>
</body></html>`

func setup(t *testing.T, src string) (*dom.Document, *Applicator) {
	t.Helper()
	doc, err := dom.ParseString(src, "https://example.com/a")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc, New(doc, Config{})
}

func countMarks(doc *dom.Document, class string) int {
	n := 0
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if dom.HasClass(x, class) {
			n++
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.Root)
	return n
}

func textNodes(n *html.Node) int {
	count := 0
	if n.Type == html.TextNode {
		count++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += textNodes(c)
	}
	return count
}

func TestApplyCountMatchesMarks(t *testing.T) {
	doc, a := setup(t, article)
	res, err := a.Apply(context.Background(), Request{Terms: []string{"bank", "alpha"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Count != 7 {
		t.Errorf("count: got %d, want 7", res.Count)
	}
	if got := countMarks(doc, "afe-highlight"); got != res.Count {
		t.Errorf("marks: got %d, want %d", got, res.Count)
	}
	if res.Terms[0].Count != 4 || res.Terms[1].Count != 3 {
		t.Errorf("per term: got %+v", res.Terms)
	}
	if got := countMarks(doc, "afe-highlight-term-1"); got != 3 {
		t.Errorf("term-1 class: got %d, want 3", got)
	}
}

func TestClearRestoresDocument(t *testing.T) {
	doc, a := setup(t, article)
	before := doc.String()
	nodes := textNodes(doc.Root)

	for range 3 {
		if _, err := a.Apply(context.Background(), Request{Terms: []string{"bank", "o*a"}}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	a.Clear()
	a.Clear()

	if after := doc.String(); after != before {
		t.Errorf("round trip:\n got  %s\n want %s", after, before)
	}
	if got := textNodes(doc.Root); got != nodes {
		t.Errorf("text nodes: got %d, want %d", got, nodes)
	}
	if got := countMarks(doc, "afe-highlight"); got != 0 {
		t.Errorf("marks after clear: got %d", got)
	}
}

func TestSingleGeneration(t *testing.T) {
	doc, a := setup(t, article)
	if _, err := a.Apply(context.Background(), Request{Terms: []string{"bank"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	marks := a.Marks()
	doc.AddClass(marks[0], "afe-highlight-current")

	res, err := a.Apply(context.Background(), Request{Terms: []string{"river"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := countMarks(doc, "afe-highlight"); got != res.Count {
		t.Errorf("marks: got %d, want %d", got, res.Count)
	}
	if got := countMarks(doc, "afe-highlight-current"); got != 0 {
		t.Errorf("current marks: got %d, want 0", got)
	}
	for _, m := range a.Marks() {
		if !strings.EqualFold(dom.TextContent(m), "river") {
			t.Errorf("stale mark %q", dom.TextContent(m))
		}
	}
}

func TestExclusionDuringMatch(t *testing.T) {
	doc, a := setup(t, `<p>river bank</p><p>money bank</p>`)
	res, err := a.Apply(context.Background(), Request{Terms: []string{"bank"}, ExcludeTerm: "river"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("count: got %d, want 1", res.Count)
	}
	if got := countMarks(doc, "afe-highlight"); got != 1 {
		t.Errorf("marks: got %d, want 1", got)
	}
}

func TestPartialFailure(t *testing.T) {
	_, a := setup(t, article)
	res, err := a.Apply(context.Background(), Request{
		Terms:   []string{"(bad", "bank"},
		Options: pattern.Options{UseRawPattern: true},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	var ipe *pattern.InvalidPatternError
	if !errors.As(res.Terms[0].Err, &ipe) {
		t.Errorf("term 0: want InvalidPatternError, got %v", res.Terms[0].Err)
	}
	if res.Terms[1].Count != 4 || res.Count != 4 {
		t.Errorf("counts: got %+v", res)
	}
}

func TestNoUsableMatcher(t *testing.T) {
	doc, a := setup(t, article)
	if _, err := a.Apply(context.Background(), Request{Terms: []string{"bank"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	_, err := a.Apply(context.Background(), Request{Terms: []string{""}})
	if !errors.Is(err, ErrNoUsableMatcher) {
		t.Fatalf("want ErrNoUsableMatcher, got %v", err)
	}
	if got := countMarks(doc, "afe-highlight"); got != 0 {
		t.Errorf("failed apply must leave no marks, got %d", got)
	}
}

func TestProximitySameContainer(t *testing.T) {
	doc, a := setup(t, article)
	spec := &proximity.Spec{Term1: "alpha", Term2: "beta", MaxDistance: 2, Unit: proximity.Words}

	res, err := a.Apply(context.Background(), Request{Proximity: spec})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("loose count: got %d, want 2", res.Count)
	}

	spec.SameContainer = true
	res, err = a.Apply(context.Background(), Request{Proximity: spec})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("same-container count: got %d, want 1", res.Count)
	}
	marks := a.Marks()
	if len(marks) != 1 {
		t.Fatalf("marks: got %d, want 1", len(marks))
	}
	m := marks[0]
	if dom.Attr(m, AttrProximity) != "true" || dom.Attr(m, AttrTerm) != "alpha ~ beta" {
		t.Errorf("mark attrs: %v", m.Attr)
	}
	if !dom.HasClass(m, "afe-highlight-proximity") {
		t.Error("mark lacks proximity class")
	}
	if !strings.Contains(doc.String(), "alpha beta outside any paragraph") {
		t.Error("unwound mark did not restore text")
	}
}

func TestProximityConstructionError(t *testing.T) {
	_, a := setup(t, article)
	res, err := a.Apply(context.Background(), Request{
		Proximity: &proximity.Spec{Term1: "a", Term2: "b", MaxDistance: 5000, Unit: proximity.Chars},
	})
	var ce *proximity.ConstructionError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConstructionError, got %v", err)
	}
	if res.Count != 0 {
		t.Errorf("count: got %d, want 0", res.Count)
	}
}

func TestMetadataAttributes(t *testing.T) {
	_, a := setup(t, `<p>call 555-1234 now</p>`)
	meta := &Meta{PatternID: "phone", PatternLabel: "Phone", CategoryID: "pii", CategoryLabel: "PII", Tags: []string{"contact", "us"}}
	_, err := a.Apply(context.Background(), Request{
		Terms:   []string{`\d{3}-\d{4}`},
		Options: pattern.Options{UseRawPattern: true},
		Meta:    meta,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	marks := a.Marks()
	if len(marks) != 1 {
		t.Fatalf("marks: got %d, want 1", len(marks))
	}
	m := marks[0]
	checks := map[string]string{
		AttrPatternID:     "phone",
		AttrPatternLabel:  "Phone",
		AttrCategoryID:    "pii",
		AttrCategoryLabel: "PII",
		AttrPatternTags:   "contact,us",
	}
	for k, want := range checks {
		if got := dom.Attr(m, k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
	if dom.Attr(m, AttrID) == "" {
		t.Error("mark has no id")
	}
}

func TestCountIsReadOnly(t *testing.T) {
	doc, a := setup(t, article)
	if _, err := a.Apply(context.Background(), Request{Terms: []string{"bank"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	mutations := 0
	doc.Observe(func(recs []dom.Record) { mutations += len(recs) })

	res, err := a.Count(context.Background(), Request{Terms: []string{"bank", "river"}})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if mutations != 0 {
		t.Errorf("count mutated the document %d times", mutations)
	}
	if res.Terms[0].Count != 4 || res.Terms[1].Count != 2 {
		t.Errorf("per term: got %+v", res.Terms)
	}
}

func TestApplyDeliversOneBatch(t *testing.T) {
	doc, a := setup(t, article)
	deliveries := 0
	doc.Observe(func([]dom.Record) { deliveries++ })
	if _, err := a.Apply(context.Background(), Request{Terms: []string{"bank"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if deliveries != 1 {
		t.Errorf("deliveries: got %d, want 1", deliveries)
	}
}

func TestStyleSheet(t *testing.T) {
	css := StyleSheet(Config{}, Palette{Terms: []string{"#ffff00", "#FFA07A"}, Proximity: "lightgreen", Current: "lightblue"})
	for _, want := range []string{
		".afe-highlight-term-0 { background-color: #ffff00; }",
		".afe-highlight-term-2 { background-color: #ffff00; }",
		".afe-highlight-proximity { background-color: lightgreen; }",
		".afe-highlight.afe-highlight-current",
	} {
		if !strings.Contains(css, want) {
			t.Errorf("stylesheet lacks %q", want)
		}
	}
}

func TestMarkIDsFromGenerator(t *testing.T) {
	doc, err := dom.ParseString(article, "https://example.com/a")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a := New(doc, Config{NewID: idgen.Prefixed("m", idgen.Sequence())})
	if _, err := a.Apply(context.Background(), Request{Terms: []string{"bank", "alpha"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	seen := make(map[string]bool)
	for _, m := range a.Marks() {
		id := dom.Attr(m, AttrID)
		if !strings.HasPrefix(id, "m") || seen[id] {
			t.Errorf("id %q: want unique m-prefixed id", id)
		}
		seen[id] = true
	}
	if len(seen) == 0 {
		t.Fatal("no marks")
	}
}

func TestCountSeesThroughMarks(t *testing.T) {
	_, a := setup(t, `<p>xfooy bar</p>`)
	ctx := context.Background()
	before, err := a.Count(ctx, Request{Terms: []string{"xfooy"}})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if _, err := a.Apply(ctx, Request{Terms: []string{"foo"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	after, err := a.Count(ctx, Request{Terms: []string{"xfooy"}})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if before.Count != 1 || after.Count != 1 {
		t.Errorf("count: got %d before and %d after highlighting, want 1 and 1", before.Count, after.Count)
	}
}

func TestProximityAcrossInlineElements(t *testing.T) {
	doc, a := setup(t, `<p>alpha <b>one</b> beta</p><p>alpha</p><p>beta</p>`)
	before := doc.String()
	spec := &proximity.Spec{Term1: "alpha", Term2: "beta", MaxDistance: 2, Unit: proximity.Words, SameContainer: true}

	res, err := a.Apply(context.Background(), Request{Proximity: spec})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("count: got %d, want 1", res.Count)
	}
	if got := len(a.Marks()); got != 1 {
		t.Errorf("heads: got %d, want 1", got)
	}
	groups := a.Matches()
	if len(groups) != 1 || len(groups[0]) != 3 {
		t.Fatalf("groups: got %d, want one of 3 marks", len(groups))
	}
	if got := GroupText(groups[0]); got != "alpha one beta" {
		t.Errorf("text: got %q, want %q", got, "alpha one beta")
	}
	id := dom.Attr(groups[0][0], AttrID)
	for i, el := range groups[0] {
		if dom.Attr(el, AttrID) != id {
			t.Errorf("mark %d: id %q, want %q", i, dom.Attr(el, AttrID), id)
		}
		if (i == 0) == dom.HasAttr(el, AttrPart) {
			t.Errorf("mark %d: part attribute on the wrong mark", i)
		}
	}

	a.Clear()
	if after := doc.String(); after != before {
		t.Errorf("round trip:\n got  %s\n want %s", after, before)
	}
}

func TestTermAcrossInlineElements(t *testing.T) {
	_, a := setup(t, `<p>ba<b>n</b>k</p><div>ban</div><div>k</div>`)
	res, err := a.Apply(context.Background(), Request{Terms: []string{"bank"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("count: got %d, want 1", res.Count)
	}
	if got := a.Text(a.Marks()[0]); got != "bank" {
		t.Errorf("text: got %q, want %q", got, "bank")
	}
}

func TestExclusionFollowsDiacritics(t *testing.T) {
	_, a := setup(t, `<p>un café noir</p><p>un thé noir</p>`)
	res, err := a.Apply(context.Background(), Request{
		Terms:       []string{"noir"},
		Options:     pattern.Options{IgnoreDiacritics: true},
		ExcludeTerm: "cafe",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("count: got %d, want 1", res.Count)
	}
}
