// Package browser loads live pages through Chrome (go-rod) and turns the
// rendered DOM into a dom.Document: open shadow roots are serialised as
// declarative templates, computed visibility is captured as an attribute,
// and same-origin frames are attached to their <iframe> elements.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
)

// HiddenAttr marks elements whose computed style hides them.
const HiddenAttr = "data-afe-hidden"

// Config configures the loader.
type Config struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome.
	Remote string

	// Stealth applies go-rod/stealth evasions to every page.
	Stealth bool

	// Timeout bounds navigation and load. Default: 30s.
	Timeout time.Duration

	// ResourceBlocking lists resource types to block (images, fonts, media).
	ResourceBlocking []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Loader owns one Chrome connection.
type Loader struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// New creates a Loader. Chrome is started on the first Load.
func New(cfg Config) *Loader {
	cfg.defaults()
	return &Loader{cfg: cfg}
}

// Load navigates to pageURL and returns the rendered document.
func (l *Loader) Load(ctx context.Context, pageURL string) (*dom.Document, error) {
	b, err := l.connect()
	if err != nil {
		return nil, err
	}
	log := l.cfg.Logger

	var page *rod.Page
	if l.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	defer page.Close()

	if len(l.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, l.cfg.ResourceBlocking); err != nil {
			log.Warn("browser: resource blocking failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	src, err := snapshot(p)
	if err != nil {
		return nil, err
	}
	doc, err := dom.ParseString(src, pageURL)
	if err != nil {
		return nil, fmt.Errorf("browser: parse %s: %w", pageURL, err)
	}
	doc.Style = Computed()

	l.attachFrames(p, doc)
	log.Info("browser: page loaded", "url", pageURL, "bytes", len(src))
	return doc, nil
}

// attachFrames loads the content of light-DOM iframes in document order.
// Frames Chrome will not let us script are left empty.
func (l *Loader) attachFrames(page *rod.Page, doc *dom.Document) {
	log := l.cfg.Logger
	els, err := page.Elements("iframe")
	if err != nil || len(els) == 0 {
		return
	}
	nodes := Iframes(doc.Root)
	if len(nodes) != len(els) {
		log.Debug("browser: iframe count mismatch", "dom", len(nodes), "live", len(els))
	}
	for i, el := range els {
		if i >= len(nodes) {
			break
		}
		frame, err := el.Frame()
		if err != nil {
			log.Debug("browser: frame not accessible", "index", i, "error", err)
			continue
		}
		src, err := snapshot(frame)
		if err != nil {
			log.Debug("browser: frame snapshot failed", "index", i, "error", err)
			continue
		}
		loc, err := frame.Eval(`() => location.href`)
		if err != nil {
			continue
		}
		root, err := html.Parse(strings.NewReader(src))
		if err != nil {
			continue
		}
		if err := doc.AttachFrame(nodes[i], root, loc.Value.Str()); err != nil {
			log.Debug("browser: attach frame", "index", i, "error", err)
		}
	}
}

// Close shuts Chrome down.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.browser != nil {
		l.browser.Close()
		l.browser = nil
	}
	if l.lnch != nil {
		l.lnch.Cleanup()
		l.lnch = nil
	}
	return nil
}

func (l *Loader) connect() (*rod.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, fmt.Errorf("browser: loader is closed")
	}
	if l.browser != nil {
		return l.browser, nil
	}
	log := l.cfg.Logger

	wsURL := l.cfg.Remote
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		ln := launcher.New().Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := ln.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		l.lnch = ln
		log.Info("browser: launched local chrome", "url", wsURL, "stealth", l.cfg.Stealth)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	l.browser = b
	return b, nil
}

func snapshot(p *rod.Page) (string, error) {
	res, err := p.Eval(snapshotJS)
	if err != nil {
		return "", fmt.Errorf("browser: snapshot: %w", err)
	}
	return res.Value.Str(), nil
}

// Computed reports elements flagged hidden at load time, falling back to
// their inline style for elements added since.
func Computed() dom.StyleResolver {
	inline := dom.InlineStyle{}
	return dom.StyleFunc(func(n *html.Node) bool {
		return dom.HasAttr(n, HiddenAttr) || inline.Hidden(n)
	})
}

// Iframes returns the <iframe> elements of the light DOM in document
// order, the order in which Chrome lists them.
func Iframes(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "iframe":
				out = append(out, n)
				return
			case "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}
