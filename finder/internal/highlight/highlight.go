// Package highlight rewrites matched text ranges into marker elements.
// Every apply runs as named stages (unmark-current, unmark-base, match,
// insert, finalize) inside one document batch, so observers see a single
// delivery and no two generations of marks ever coexist.
//
// Matching runs over the text of a block element with inline elements,
// marks included, treated as transparent. A match spanning several text
// nodes gets one mark per node; the marks share an id and all but the
// first carry AttrPart.
package highlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/idgen"
	"github.com/hazyhaar/advfind/finder/internal/exclude"
	"github.com/hazyhaar/advfind/finder/internal/pattern"
	"github.com/hazyhaar/advfind/finder/internal/proximity"
	"github.com/hazyhaar/advfind/finder/internal/walker"
)

// Data attributes written on every mark.
const (
	AttrID            = "data-afe-id"
	AttrTerm          = "data-afe-term"
	AttrProximity     = "data-afe-proximity"
	AttrPatternID     = "data-afe-pattern-id"
	AttrPatternLabel  = "data-afe-pattern-label"
	AttrCategoryID    = "data-afe-pattern-category-id"
	AttrCategoryLabel = "data-afe-pattern-category-label"
	AttrPatternTags   = "data-afe-pattern-tags"
	// AttrPart numbers the continuation marks of a match split across
	// text nodes.
	AttrPart = "data-afe-part"
)

// blockTags end a run of text. Every other element is inline.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "caption": true, "dd": true, "details": true, "dialog": true,
	"div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"html": true, "legend": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "summary": true,
	"table": true, "tbody": true, "td": true, "tfoot": true, "th": true,
	"thead": true, "tr": true, "ul": true, "template": true,
}

// ErrNoUsableMatcher is returned when no term of a request compiled.
var ErrNoUsableMatcher = errors.New("highlight: no usable matcher")

// MutationRaceError reports a text node that changed between matching and
// insertion.
type MutationRaceError struct {
	Node string
}

func (e *MutationRaceError) Error() string {
	return fmt.Sprintf("highlight: %s changed before insertion", e.Node)
}

// Config carries the class contract and behaviour knobs.
type Config struct {
	Element        string
	BaseClass      string
	CurrentClass   string
	ProximityClass string
	TermClasses    []string
	// ContainerTags are the paragraph-like elements used by same-container
	// proximity validation.
	ContainerTags       []string
	SkipTags            []string
	ExcludeContextWords int
	// NewID generates mark ids. Default: idgen.Default.
	NewID  idgen.Generator
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Element == "" {
		c.Element = "mark"
	}
	if c.BaseClass == "" {
		c.BaseClass = "afe-highlight"
	}
	if c.CurrentClass == "" {
		c.CurrentClass = "afe-highlight-current"
	}
	if c.ProximityClass == "" {
		c.ProximityClass = "afe-highlight-proximity"
	}
	if len(c.TermClasses) == 0 {
		c.TermClasses = []string{"afe-highlight-term-0", "afe-highlight-term-1", "afe-highlight-term-2", "afe-highlight-term-3"}
	}
	if c.ExcludeContextWords <= 0 {
		c.ExcludeContextWords = exclude.DefaultContextWords
	}
	if c.NewID == nil {
		c.NewID = idgen.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Meta is pattern-library metadata stamped onto marks.
type Meta struct {
	PatternID     string
	PatternLabel  string
	CategoryID    string
	CategoryLabel string
	Tags          []string
}

// Request is one highlight operation. When Proximity is set, Terms is
// ignored.
type Request struct {
	Terms       []string
	Options     pattern.Options
	ExcludeTerm string
	Proximity   *proximity.Spec
	Meta        *Meta
}

// TermResult is the contribution of one term.
type TermResult struct {
	Term  string
	Count int
	Err   error
}

// Result sums an apply or count.
type Result struct {
	Count int
	Terms []TermResult
}

// Applicator owns the marks of one document.
type Applicator struct {
	doc *dom.Document
	cfg Config
	log *slog.Logger
}

// New creates an Applicator for doc.
func New(doc *dom.Document, cfg Config) *Applicator {
	cfg.defaults()
	return &Applicator{doc: doc, cfg: cfg, log: cfg.Logger}
}

// Config returns the effective configuration.
func (a *Applicator) Config() Config { return a.cfg }

type termMatcher struct {
	result    int // index into Result.Terms
	label     string
	m         *pattern.Matcher
	class     string
	proximity bool
}

// hit is a match. Offsets are into the run text during matching and into
// a node's text once cut.
type hit struct {
	start, end int
	tm         *termMatcher
}

// piece is one text node of a run.
type piece struct {
	node  *html.Node
	start int // offset of the node's text in the run
	text  string
}

// textRun is the text of consecutive segments under one block element.
type textRun struct {
	text   string
	pieces []piece
}

// pieceAt returns the index of the piece holding byte off of the run.
func (t *textRun) pieceAt(off int) int {
	return sort.Search(len(t.pieces), func(i int) bool {
		return t.pieces[i].start+len(t.pieces[i].text) > off
	})
}

type found struct {
	run  *textRun
	hits []hit
}

// cut is the part of a match falling inside one text node.
type cut struct {
	start, end int
	tm         *termMatcher
	id         string
	part       int
}

type planned struct {
	node *html.Node
	text string
	cuts []cut
}

type placed struct {
	el   *html.Node
	tm   *termMatcher
	head bool
}

type run struct {
	req       Request
	matchers  []*termMatcher
	filter    exclude.Filter
	validator *proximity.Validator
	parents   map[*html.Node]bool
	found     []found
	marks     []placed
	res       Result
}

type stage struct {
	name string
	fn   func(*run) error
}

func (a *Applicator) stages() []stage {
	return []stage{
		{"unmark-current", a.unmarkCurrent},
		{"unmark-base", a.unmarkBase},
		{"match", a.match},
		{"insert", a.insert},
		{"finalize", a.finalize},
	}
}

// Apply replaces the current marks with the marks of req. Errors local to
// a term are reported in Result.Terms; an error is returned only when no
// term could be compiled, in which case the document holds no marks.
func (a *Applicator) Apply(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	r := &run{req: req, parents: make(map[*html.Node]bool)}
	var err error
	a.doc.Batch(func() {
		for _, st := range a.stages() {
			if serr := st.fn(r); serr != nil {
				err = fmt.Errorf("highlight: %s: %w", st.name, serr)
				return
			}
			a.log.Debug("highlight: stage done", "stage", st.name, "marks", len(r.marks))
		}
	})
	return r.res, err
}

// Count runs the match stage without touching the document. Marks are
// transparent, so the count does not depend on the current highlights.
func (a *Applicator) Count(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	r := &run{req: req}
	if err := a.compile(r); err != nil {
		return r.res, err
	}
	a.scan(r, true)
	for _, f := range r.found {
		for _, h := range f.hits {
			r.res.Terms[h.tm.result].Count++
			r.res.Count++
		}
	}
	return r.res, nil
}

// Clear removes every mark and merges the text around them. It returns
// the number of marks removed.
func (a *Applicator) Clear() int {
	parents := make(map[*html.Node]bool)
	var n int
	a.doc.Batch(func() {
		n = a.unwrapClass(a.cfg.BaseClass, parents)
		a.normalize(parents)
	})
	return n
}

// Marks returns the first mark of every match in document order.
func (a *Applicator) Marks() []*html.Node {
	var out []*html.Node
	for el := range walker.Elements(a.doc, a.cfg.BaseClass) {
		if !dom.HasAttr(el, AttrPart) {
			out = append(out, el)
		}
	}
	return out
}

// Matches returns the marks of every match in document order, the first
// mark of each match leading its group.
func (a *Applicator) Matches() [][]*html.Node {
	var out [][]*html.Node
	at := make(map[string]int)
	for el := range walker.Elements(a.doc, a.cfg.BaseClass) {
		id := dom.Attr(el, AttrID)
		if i, ok := at[id]; ok && dom.HasAttr(el, AttrPart) {
			out[i] = append(out[i], el)
			continue
		}
		at[id] = len(out)
		out = append(out, []*html.Node{el})
	}
	return out
}

// Text returns the full text of the match led by mark.
func (a *Applicator) Text(mark *html.Node) string {
	for _, g := range a.Matches() {
		if g[0] == mark {
			return GroupText(g)
		}
	}
	return dom.TextContent(mark)
}

// GroupText joins the text of the marks of one match.
func GroupText(group []*html.Node) string {
	var sb strings.Builder
	for _, el := range group {
		sb.WriteString(dom.TextContent(el))
	}
	return sb.String()
}

func (a *Applicator) unmarkCurrent(r *run) error {
	a.unwrapClass(a.cfg.CurrentClass, r.parents)
	return nil
}

func (a *Applicator) unmarkBase(r *run) error {
	a.unwrapClass(a.cfg.BaseClass, r.parents)
	a.normalize(r.parents)
	return nil
}

func (a *Applicator) match(r *run) error {
	if err := a.compile(r); err != nil {
		return err
	}
	a.scan(r, false)
	return nil
}

func (a *Applicator) insert(r *run) error {
	for _, p := range a.plan(r) {
		if p.node.Parent == nil || p.node.Data != p.text {
			a.log.Debug("highlight: skipping segment", "error", &MutationRaceError{Node: dom.Describe(p.node)})
			continue
		}
		if err := a.wrap(r, p); err != nil {
			a.log.Warn("highlight: wrap failed", "node", dom.Describe(p.node), "error", err)
		}
	}
	return nil
}

func (a *Applicator) finalize(r *run) error {
	for _, pl := range r.marks {
		if !pl.head {
			continue
		}
		r.res.Terms[pl.tm.result].Count++
		r.res.Count++
	}
	return nil
}

// plan cuts every hit into per-node ranges, in document order.
func (a *Applicator) plan(r *run) []*planned {
	var out []*planned
	byNode := make(map[*html.Node]*planned)
	for _, f := range r.found {
		for _, h := range f.hits {
			id := a.cfg.NewID()
			part := 0
			for i := f.run.pieceAt(h.start); i < len(f.run.pieces); i++ {
				pc := f.run.pieces[i]
				if pc.start >= h.end {
					break
				}
				start := max(h.start, pc.start) - pc.start
				end := min(h.end, pc.start+len(pc.text)) - pc.start
				if end <= start {
					continue
				}
				p := byNode[pc.node]
				if p == nil {
					p = &planned{node: pc.node, text: pc.text}
					byNode[pc.node] = p
					out = append(out, p)
				}
				p.cuts = append(p.cuts, cut{start: start, end: end, tm: h.tm, id: id, part: part})
				part++
			}
		}
	}
	return out
}

// compile builds the matchers, exclusion filter and validator of r.
func (a *Applicator) compile(r *run) error {
	req := r.req
	r.filter = exclude.Build(req.ExcludeTerm, exclude.Options{
		CaseSensitive:    req.Options.CaseSensitive,
		IgnoreDiacritics: req.Options.IgnoreDiacritics,
	}, a.cfg.ExcludeContextWords)

	if req.Proximity != nil {
		spec := *req.Proximity
		r.res.Terms = []TermResult{{Term: spec.Label()}}
		m, err := proximity.Compile(spec, req.Options)
		if err != nil {
			r.res.Terms[0].Err = err
			a.log.Warn("highlight: proximity pattern rejected", "term1", spec.Term1, "term2", spec.Term2, "error", err)
			return err
		}
		r.matchers = []*termMatcher{{label: spec.Label(), m: m, class: a.cfg.ProximityClass, proximity: true}}
		if spec.SameContainer {
			v, err := proximity.NewValidator(spec, req.Options, a.cfg.ContainerTags)
			if err != nil {
				r.res.Terms[0].Err = err
				return err
			}
			r.validator = v
		}
		return nil
	}

	var firstErr error
	for i, term := range req.Terms {
		r.res.Terms = append(r.res.Terms, TermResult{Term: term})
		m, err := pattern.Compile(term, req.Options)
		if err != nil {
			r.res.Terms[i].Err = err
			if firstErr == nil {
				firstErr = err
			}
			a.log.Warn("highlight: term skipped", "term", term, "error", err)
			continue
		}
		if req.Options.UseRawPattern && req.Options.IgnoreDiacritics {
			a.log.Debug("highlight: diacritic folding not applied to raw pattern", "term", term)
		}
		r.matchers = append(r.matchers, &termMatcher{
			result: i,
			label:  term,
			m:      m,
			class:  a.cfg.TermClasses[i%len(a.cfg.TermClasses)],
		})
	}
	if len(r.matchers) == 0 {
		if firstErr != nil {
			return fmt.Errorf("%w: %w", ErrNoUsableMatcher, firstErr)
		}
		return ErrNoUsableMatcher
	}
	return nil
}

// scan fills r.found with non-overlapping, non-excluded hits per run.
// Earlier terms win over later ones on overlap. The exclusion context of
// a hit is the text of the nodes it touches; proximity hits are validated
// against the containers of their two ends.
func (a *Applicator) scan(r *run, includeMarked bool) {
	for _, tr := range a.runs(includeMarked) {
		var hits []hit
		for _, tm := range r.matchers {
			for _, m := range tm.m.FindAll(tr.text) {
				if overlaps(hits, m) {
					continue
				}
				first, last := tr.pieceAt(m.Start), tr.pieceAt(m.End-1)
				from := tr.pieces[first].start
				to := tr.pieces[last].start + len(tr.pieces[last].text)
				match := tr.text[m.Start:m.End]
				if !r.filter(tr.text[from:to], match, m.Start-from) {
					continue
				}
				if r.validator != nil && !r.validator.ValidSpan(tr.pieces[first].node, tr.pieces[last].node, match) {
					continue
				}
				hits = append(hits, hit{start: m.Start, end: m.End, tm: tm})
			}
		}
		if len(hits) == 0 {
			continue
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
		r.found = append(r.found, found{run: tr, hits: hits})
	}
}

// runs groups the walked text into runs. A run ends at a block element,
// a shadow root or a frame boundary.
func (a *Applicator) runs(includeMarked bool) []*textRun {
	opts := walker.Options{
		MarkerClass:   a.cfg.BaseClass,
		IncludeMarked: includeMarked,
		SkipTags:      a.cfg.SkipTags,
		Logger:        a.log,
	}
	var (
		out    []*textRun
		cur    = &textRun{}
		sb     strings.Builder
		block  *html.Node
		origin walker.Origin
	)
	flush := func() {
		cur.text = sb.String()
		if strings.TrimSpace(cur.text) != "" {
			out = append(out, cur)
		}
		cur = &textRun{}
		sb.Reset()
	}
	for seg := range walker.Walk(a.doc, opts) {
		b := a.blockOf(seg.Node)
		if len(cur.pieces) > 0 && (b != block || seg.Origin != origin) {
			flush()
		}
		block, origin = b, seg.Origin
		cur.pieces = append(cur.pieces, piece{node: seg.Node, start: sb.Len(), text: seg.Text})
		sb.WriteString(seg.Text)
	}
	flush()
	return out
}

// blockOf returns the nearest ancestor of n that ends a run.
func (a *Applicator) blockOf(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			return p
		}
		if dom.HasClass(p, a.cfg.BaseClass) {
			continue
		}
		if blockTags[p.Data] || dom.IsShadowRoot(p) {
			return p
		}
	}
	return nil
}

func overlaps(hits []hit, m pattern.Match) bool {
	for _, h := range hits {
		if m.Start < h.end && h.start < m.End {
			return true
		}
	}
	return false
}

// wrap splits the text node of p around its cuts.
func (a *Applicator) wrap(r *run, p *planned) error {
	parent := p.node.Parent
	pos := 0
	for _, c := range p.cuts {
		if c.start > pos {
			if err := a.doc.InsertBefore(parent, dom.Text(p.text[pos:c.start]), p.node); err != nil {
				return err
			}
		}
		el := a.newMark(p.text[c.start:c.end], c, r.req.Meta)
		if err := a.doc.InsertBefore(parent, el, p.node); err != nil {
			return err
		}
		r.marks = append(r.marks, placed{el: el, tm: c.tm, head: c.part == 0})
		pos = c.end
	}
	if pos < len(p.text) {
		if err := a.doc.InsertBefore(parent, dom.Text(p.text[pos:]), p.node); err != nil {
			return err
		}
	}
	return a.doc.RemoveChild(parent, p.node)
}

func (a *Applicator) newMark(text string, c cut, meta *Meta) *html.Node {
	attrs := []html.Attribute{
		{Key: "class", Val: a.cfg.BaseClass + " " + c.tm.class},
		{Key: AttrID, Val: c.id},
		{Key: AttrTerm, Val: c.tm.label},
	}
	if c.part > 0 {
		attrs = append(attrs, html.Attribute{Key: AttrPart, Val: strconv.Itoa(c.part)})
	}
	if c.tm.proximity {
		attrs = append(attrs, html.Attribute{Key: AttrProximity, Val: "true"})
	}
	if meta != nil {
		attrs = append(attrs,
			html.Attribute{Key: AttrPatternID, Val: meta.PatternID},
			html.Attribute{Key: AttrPatternLabel, Val: meta.PatternLabel},
			html.Attribute{Key: AttrCategoryID, Val: meta.CategoryID},
			html.Attribute{Key: AttrCategoryLabel, Val: meta.CategoryLabel},
			html.Attribute{Key: AttrPatternTags, Val: strings.Join(meta.Tags, ",")},
		)
	}
	el := dom.Element(a.cfg.Element, attrs...)
	el.AppendChild(dom.Text(text))
	return el
}

// unwrapClass unwraps every element carrying class and records their
// parents for normalisation.
func (a *Applicator) unwrapClass(class string, parents map[*html.Node]bool) int {
	var els []*html.Node
	for el := range walker.Elements(a.doc, class) {
		els = append(els, el)
	}
	for _, el := range els {
		if el.Parent != nil {
			parents[el.Parent] = true
		}
		if err := a.doc.Unwrap(el); err != nil {
			a.log.Warn("highlight: unwrap failed", "node", dom.Describe(el), "error", err)
		}
	}
	return len(els)
}

func (a *Applicator) normalize(parents map[*html.Node]bool) {
	for p := range parents {
		if p.Parent == nil && p.Type != html.DocumentNode {
			continue
		}
		a.doc.Normalize(p)
	}
}
