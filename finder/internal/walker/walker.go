// Package walker enumerates the searchable text of a document: visible
// content text, including open shadow roots and same-origin frames.
package walker

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/advfind/finder/dom"
)

// Origin tells where a segment was found.
type Origin string

const (
	OriginMain   Origin = "main"
	OriginShadow Origin = "shadow"
	OriginFrame  Origin = "frame"
)

// Segment is one text node reachable at walk time.
type Segment struct {
	Node   *html.Node
	Text   string
	Origin Origin
}

// DefaultSkipTags lists elements whose content is never searchable.
var DefaultSkipTags = []string{
	"script", "style", "noscript", "iframe", "select", "textarea", "option",
	"head", "meta", "link", "title", "audio", "video", "canvas", "svg", "math",
	"embed", "object", "param", "template",
}

// Options tunes a walk.
type Options struct {
	// SkipBlank drops whitespace-only segments.
	SkipBlank bool
	// MarkerClass marks highlight elements; their text is not yielded.
	MarkerClass string
	// IncludeMarked yields text inside marker elements too.
	IncludeMarked bool
	// SkipTags overrides DefaultSkipTags.
	SkipTags []string
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.SkipTags == nil {
		o.SkipTags = DefaultSkipTags
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

type walk struct {
	doc  *dom.Document
	opts Options
	skip map[string]bool
}

func newWalk(doc *dom.Document, opts Options) *walk {
	opts.defaults()
	skip := make(map[string]bool, len(opts.SkipTags))
	for _, t := range opts.SkipTags {
		skip[strings.ToLower(t)] = true
	}
	return &walk{doc: doc, opts: opts, skip: skip}
}

// Walk yields eligible text segments in document order. Each call starts a
// fresh traversal.
func Walk(doc *dom.Document, opts Options) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		w := newWalk(doc, opts)
		w.text(doc.Root, OriginMain, yield)
	}
}

// Elements yields every element carrying class in composed document order
// (shadow roots and frames in place), regardless of visibility.
func Elements(doc *dom.Document, class string) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		w := newWalk(doc, Options{})
		w.elements(doc.Root, class, yield)
	}
}

// child describes how to continue below an element.
type child struct {
	root   *html.Node // node whose children are visited
	origin Origin
}

// enter decides whether descent continues below n and where. Visibility is
// checked before frames and shadow roots are entered. Panics raised
// while inspecting a node are turned into errors so the caller can skip
// that subtree only.
func (w *walk) enter(n *html.Node, origin Origin, filtered bool) (next child, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("walker: inspect %s: %v", dom.Describe(n), r)
			ok = false
		}
	}()

	if n.Type != html.ElementNode {
		return child{root: n, origin: origin}, true, nil
	}
	if filtered {
		if w.doc.Style != nil && w.doc.Style.Hidden(n) {
			return child{}, false, nil
		}
		if !w.opts.IncludeMarked && w.opts.MarkerClass != "" && dom.HasClass(n, w.opts.MarkerClass) {
			return child{}, false, nil
		}
	}
	switch {
	case n.DataAtom == atom.Iframe:
		root, ferr := w.doc.FrameContent(n)
		if ferr != nil {
			return child{}, false, ferr
		}
		if root == nil {
			return child{}, false, nil
		}
		return child{root: root, origin: OriginFrame}, true, nil
	case dom.IsShadowRoot(n):
		if !dom.IsOpenShadowRoot(n) {
			return child{}, false, nil
		}
		return child{root: n, origin: OriginShadow}, true, nil
	}
	if !filtered {
		return child{root: n, origin: origin}, true, nil
	}
	if w.skip[n.Data] {
		return child{}, false, nil
	}
	return child{root: n, origin: origin}, true, nil
}

func (w *walk) text(n *html.Node, origin Origin, yield func(Segment) bool) bool {
	if n.Type == html.TextNode {
		if w.opts.SkipBlank && strings.TrimSpace(n.Data) == "" {
			return true
		}
		return yield(Segment{Node: n, Text: n.Data, Origin: origin})
	}
	next, ok, err := w.enter(n, origin, true)
	if err != nil {
		w.opts.Logger.Debug("walker: skipping subtree", "node", dom.Describe(n), "error", err)
	}
	if !ok {
		return true
	}
	for c := next.root.FirstChild; c != nil; c = c.NextSibling {
		if !w.text(c, next.origin, yield) {
			return false
		}
	}
	return true
}

func (w *walk) elements(n *html.Node, class string, yield func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && dom.HasClass(n, class) {
		if !yield(n) {
			return false
		}
	}
	next, ok, err := w.enter(n, OriginMain, false)
	if err != nil {
		w.opts.Logger.Debug("walker: skipping subtree", "node", dom.Describe(n), "error", err)
	}
	if !ok {
		return true
	}
	for c := next.root.FirstChild; c != nil; c = c.NextSibling {
		if !w.elements(c, class, yield) {
			return false
		}
	}
	return true
}
