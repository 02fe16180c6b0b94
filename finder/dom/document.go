// Package dom wraps a parsed HTML tree as a live document: every structural
// or text change goes through Document methods, which emit mutation records
// to registered observers. Shadow roots are declarative
// (<template shadowrootmode>), frames are sub-trees attached to their
// <iframe> element.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Frame is the content document of an <iframe>.
type Frame struct {
	Root *html.Node
	URL  *url.URL
}

// Document is a mutable HTML tree with mutation observation.
// It is not safe for concurrent mutation; callers serialise access
// (finder.Engine does so with its own lock).
type Document struct {
	Root *html.Node
	URL  *url.URL

	// Style decides visibility. Default: InlineStyle.
	Style StyleResolver
	// Viewport answers scroll questions. Default: a RecordingViewport
	// that reports every node as off-screen.
	Viewport Viewport

	frames map[*html.Node]*Frame

	obsMu     sync.Mutex
	observers map[int]ObserverFunc
	nextObs   int

	depth   int
	pending []Record
}

// Parse reads an HTML document. rawURL identifies the page; it is used for
// frame origin checks and persistence keys and may be empty.
func Parse(r io.Reader, rawURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root, rawURL)
}

// ParseString is Parse over a string.
func ParseString(s, rawURL string) (*Document, error) {
	return Parse(strings.NewReader(s), rawURL)
}

// New wraps an already parsed tree. Inline <iframe srcdoc> documents are
// parsed and attached as same-origin frames.
func New(root *html.Node, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("dom: url %q: %w", rawURL, err)
	}
	d := &Document{
		Root:      root,
		URL:       u,
		Style:     InlineStyle{},
		Viewport:  &RecordingViewport{},
		frames:    make(map[*html.Node]*Frame),
		observers: make(map[int]ObserverFunc),
	}
	if err := d.loadSrcdocFrames(root); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) loadSrcdocFrames(n *html.Node) error {
	if n.Type == html.ElementNode && n.DataAtom == atom.Iframe && HasAttr(n, "srcdoc") {
		froot, err := html.Parse(strings.NewReader(Attr(n, "srcdoc")))
		if err != nil {
			return fmt.Errorf("dom: parse srcdoc: %w", err)
		}
		about, _ := url.Parse("about:srcdoc")
		d.frames[n] = &Frame{Root: froot, URL: about}
		if err := d.loadSrcdocFrames(froot); err != nil {
			return err
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := d.loadSrcdocFrames(c); err != nil {
			return err
		}
	}
	return nil
}

// AttachFrame sets the content document of an <iframe>. Loaders that fetch
// frame content out of band (see package browser) use it.
func (d *Document) AttachFrame(iframe, root *html.Node, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("dom: frame url %q: %w", rawURL, err)
	}
	d.frames[iframe] = &Frame{Root: root, URL: u}
	return nil
}

// FrameContent returns the content tree of an <iframe>. A frame whose
// origin differs from the document's yields a *TraversalError. An iframe
// with no attached content returns nil, nil.
func (d *Document) FrameContent(iframe *html.Node) (*html.Node, error) {
	f, ok := d.frames[iframe]
	if !ok {
		return nil, nil
	}
	if !d.sameOrigin(f.URL) {
		return nil, &TraversalError{Node: Describe(iframe), Reason: "cross-origin frame " + f.URL.String()}
	}
	return f.Root, nil
}

func (d *Document) sameOrigin(u *url.URL) bool {
	if u == nil || u.Scheme == "about" || (u.Scheme == "" && u.Host == "") {
		return true
	}
	if d.URL == nil || d.URL.Host == "" {
		return false
	}
	return strings.EqualFold(u.Scheme, d.URL.Scheme) && strings.EqualFold(u.Host, d.URL.Host)
}

// Render serialises the document. Frame content is written back into the
// srcdoc attribute of its iframe so the output is self-contained.
func (d *Document) Render(w io.Writer) error {
	if err := d.syncFrames(d.Root); err != nil {
		return err
	}
	return html.Render(w, d.Root)
}

// String renders the document, returning "" on error.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) syncFrames(n *html.Node) error {
	if f, ok := d.frames[n]; ok {
		if err := d.syncFrames(f.Root); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := html.Render(&buf, f.Root); err != nil {
			return fmt.Errorf("dom: render frame: %w", err)
		}
		setAttr(n, "srcdoc", buf.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := d.syncFrames(c); err != nil {
			return err
		}
	}
	return nil
}

// Body returns the <body> element, or the root if there is none.
func (d *Document) Body() *html.Node {
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(d.Root)
	if body == nil {
		return d.Root
	}
	return body
}

// Head returns the <head> element or nil.
func (d *Document) Head() *html.Node {
	for n := d.Root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode || n.DataAtom != atom.Html {
			continue
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Head {
				return c
			}
		}
	}
	return nil
}

// TraversalError reports a subtree that could not be entered.
type TraversalError struct {
	Node   string
	Reason string
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("dom: cannot traverse %s: %s", e.Node, e.Reason)
}
