// Package finder is the text match and highlight engine. An Engine owns one
// document: it compiles queries, marks their matches, navigates between
// marks, exports them, and replays the last query when the document
// changes underneath.
//
// Every public operation takes the engine lock, so at most one operation
// is in flight and a Clear issued after a Search always runs after it.
package finder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/finder/internal/cursor"
	"github.com/hazyhaar/advfind/finder/internal/highlight"
	"github.com/hazyhaar/advfind/finder/internal/reactive"
	"github.com/hazyhaar/advfind/finder/internal/store"
	"github.com/hazyhaar/advfind/kit"
)

// StyleElementID identifies the injected stylesheet.
const StyleElementID = "afe-styles"

// Stats are the reactivity counters.
type Stats = reactive.Stats

// PageState is a persisted query.
type PageState = store.PageState

// Store is the SQLite page-state store.
type Store = store.Store

// PageKey derives the persistence key of a page URL.
func PageKey(rawURL string) string { return store.PageKey(rawURL) }

// OpenStore opens the page-state database at path, creating parent
// directories as needed.
func OpenStore(path string) (*Store, error) {
	return store.Open(path, store.WithMkdirAll())
}

// PageStore persists the last query per page.
type PageStore interface {
	Save(ctx context.Context, st *PageState) error
	Load(ctx context.Context, key string) (*PageState, error)
	Delete(ctx context.Context, key string) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithStore enables per-page persistence of applied queries.
func WithStore(s PageStore) Option { return func(e *Engine) { e.store = s } }

// WithReplayHook is called after every reactive replay, outside the
// engine lock.
func WithReplayHook(fn func(Result, error)) Option { return func(e *Engine) { e.onReplay = fn } }

// WithServiceMiddleware wraps every service endpoint registered by
// RegisterConnectivity and RegisterMCP. fn receives the service name.
func WithServiceMiddleware(fn func(service string) kit.Middleware) Option {
	return func(e *Engine) { e.serviceMW = fn }
}

// Engine is the per-document context object.
type Engine struct {
	mu     sync.Mutex
	doc    *dom.Document
	cfg    Config
	log    *slog.Logger
	store  PageStore
	app    *highlight.Applicator
	cur    *cursor.Cursor
	ctrl   *reactive.Controller
	last   *SearchSpec
	closed bool

	onReplay  func(Result, error)
	serviceMW func(string) kit.Middleware
}

// New creates an engine over doc and starts watching it. Call Close to
// stop the watcher.
func New(doc *dom.Document, cfg Config, opts ...Option) *Engine {
	cfg.applyDefaults()
	e := &Engine{doc: doc, cfg: cfg}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	hc := cfg.highlightConfig()
	hc.Logger = e.log
	e.app = highlight.New(doc, hc)
	e.cur = cursor.New(doc, cfg.Highlight.CurrentClass)
	e.ctrl = reactive.New(doc, reactive.Config{
		Debounce:    cfg.Behavior.ReapplyDebounce,
		MarkerClass: cfg.Highlight.BaseClass,
		Logger:      e.log,
	}, e.replay)
	e.ctrl.Start(context.Background())
	return e
}

// Document returns the engine's document. Change it through Mutate.
func (e *Engine) Document() *dom.Document { return e.doc }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Search marks every occurrence of terms. Terms that do not compile are
// reported in Result.PerTerm; an error is returned only when none did.
func (e *Engine) Search(ctx context.Context, terms []string, opts Options) (Result, error) {
	return e.Apply(ctx, SearchSpec{Terms: terms, Options: opts})
}

// SearchProximity marks the spans where term1 and term2 occur within
// p.MaxDistance units of each other.
func (e *Engine) SearchProximity(ctx context.Context, term1, term2 string, p ProximitySpec, opts Options) (Result, error) {
	p.SecondTerm = term2
	return e.Apply(ctx, SearchSpec{Terms: []string{term1}, Options: opts, Proximity: &p})
}

// SearchPattern marks the matches of a pattern-library entry. The pattern
// is used raw and its metadata is stamped onto the marks.
func (e *Engine) SearchPattern(ctx context.Context, id string, opts Options) (Result, error) {
	p, meta, ok := e.cfg.Library.Lookup(id)
	if !ok {
		return Result{}, fmt.Errorf("finder: search pattern %q: %w", id, ErrUnknownPattern)
	}
	opts.UseRawPattern = true
	return e.Apply(ctx, SearchSpec{Terms: []string{p.Pattern}, Options: opts, Pattern: meta})
}

// Restore re-applies a stored query: a proximity search when prox is set,
// a term search otherwise.
func (e *Engine) Restore(ctx context.Context, terms []string, opts Options, prox *ProximitySpec) (Result, error) {
	if prox != nil {
		if len(terms) == 0 {
			return Result{}, ErrEmptyTerms
		}
		return e.SearchProximity(ctx, terms[0], prox.SecondTerm, *prox, opts)
	}
	return e.Search(ctx, terms, opts)
}

// RestoreSaved restores the query persisted for the document's page.
func (e *Engine) RestoreSaved(ctx context.Context) (Result, error) {
	if e.store == nil {
		return Result{}, ErrNoQuery
	}
	st, err := e.store.Load(ctx, e.pageKey())
	if err != nil {
		return Result{}, fmt.Errorf("finder: restore: %w", err)
	}
	if st == nil {
		return Result{}, ErrNoQuery
	}
	var opts Options
	if len(st.Options) > 0 {
		if err := json.Unmarshal(st.Options, &opts); err != nil {
			return Result{}, fmt.Errorf("finder: restore: decode options: %w", err)
		}
	}
	var prox *ProximitySpec
	if len(st.Proximity) > 0 {
		prox = new(ProximitySpec)
		if err := json.Unmarshal(st.Proximity, prox); err != nil {
			return Result{}, fmt.Errorf("finder: restore: decode proximity: %w", err)
		}
	}
	e.log.Info("finder: restoring saved query", "key", st.Key, "terms", len(st.Terms))
	return e.Restore(ctx, st.Terms, opts, prox)
}

// Apply runs a complete query and makes it the last query.
func (e *Engine) Apply(ctx context.Context, spec SearchSpec) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Result{}, ErrClosed
	}

	res, err := e.apply(ctx, spec)
	if err != nil {
		return res, err
	}
	e.persist(ctx, spec)
	return res, nil
}

// apply must be called with e.mu held.
func (e *Engine) apply(ctx context.Context, spec SearchSpec) (Result, error) {
	var hr highlight.Result
	err := e.ctrl.Run(func() error {
		var err error
		hr, err = e.app.Apply(ctx, spec.request())
		e.cur.Reset(e.app.Marks())
		return err
	})
	res := Result{Count: hr.Count, PerTerm: perTerm(hr)}
	if err != nil {
		e.last = nil
		e.ctrl.Arm(false)
		e.log.Warn("finder: search failed", "terms", spec.Terms, "error", err)
		return res, fmt.Errorf("finder: search: %w", err)
	}
	e.last = spec.clone()
	e.ctrl.Arm(true)
	e.log.Debug("finder: search applied", "terms", len(spec.Terms), "count", res.Count)
	return res, nil
}

func (e *Engine) persist(ctx context.Context, spec SearchSpec) {
	if e.store == nil || !e.cfg.Persistent() {
		return
	}
	st := &PageState{Key: e.pageKey(), URL: e.pageURL(), Terms: spec.Terms}
	var err error
	if st.Options, err = json.Marshal(spec.Options); err != nil {
		e.log.Warn("finder: persist: encode options", "error", err)
		return
	}
	if spec.Proximity != nil {
		if st.Proximity, err = json.Marshal(spec.Proximity); err != nil {
			e.log.Warn("finder: persist: encode proximity", "error", err)
			return
		}
	}
	if err := e.store.Save(ctx, st); err != nil {
		e.log.Warn("finder: persist failed", "key", st.Key, "error", err)
	}
}

// replay is the reactive controller's callback.
func (e *Engine) replay(ctx context.Context) error {
	e.mu.Lock()
	if e.closed || e.last == nil {
		e.mu.Unlock()
		return nil
	}
	res, err := e.apply(ctx, *e.last)
	e.mu.Unlock()

	if e.onReplay != nil {
		e.onReplay(res, err)
	}
	return err
}

// Clear removes every mark, forgets the last query and deletes its
// persisted copy. Clearing a document without marks is a no-op.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	var n int
	e.ctrl.Run(func() error {
		n = e.app.Clear()
		e.cur.Reset(nil)
		return nil
	})
	e.last = nil
	e.ctrl.Arm(false)
	e.log.Debug("finder: cleared", "marks", n)

	if e.store != nil && e.cfg.Persistent() {
		if err := e.store.Delete(ctx, e.pageKey()); err != nil {
			e.log.Warn("finder: clear: delete saved query", "error", err)
		}
	}
	return nil
}

// Navigate moves the current mark one step, wrapping at either end.
func (e *Engine) Navigate(ctx context.Context, dir Direction) (NavState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return NavState{Index: cursor.None}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return NavState{Index: cursor.None}, err
	}

	var idx int
	e.ctrl.Run(func() error {
		e.doc.Batch(func() {
			switch dir {
			case Previous:
				idx = e.cur.Previous()
			default:
				idx = e.cur.Next()
			}
		})
		return nil
	})
	return e.navState(idx), nil
}

func (e *Engine) navState(idx int) NavState {
	st := NavState{Index: idx, Total: e.cur.Len()}
	if el := e.cur.Current(); el != nil {
		st.Text = e.app.Text(el)
		st.Term = dom.Attr(el, highlight.AttrTerm)
		st.ID = dom.Attr(el, highlight.AttrID)
	}
	return st
}

// Current returns the cursor position without moving it.
func (e *Engine) Current() NavState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.navState(e.cur.Index())
}

// CountOnly counts the matches of terms without changing the document.
// The current marks do not affect the count.
func (e *Engine) CountOnly(ctx context.Context, terms []string, opts Options) (CountResult, error) {
	return e.Count(ctx, SearchSpec{Terms: terms, Options: opts})
}

// Count is CountOnly for a complete query, proximity included.
func (e *Engine) Count(ctx context.Context, spec SearchSpec) (CountResult, error) {
	if err := spec.Validate(); err != nil {
		return CountResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return CountResult{}, ErrClosed
	}
	hr, err := e.app.Count(ctx, spec.request())
	res := CountResult{Total: hr.Count, PerTerm: perTerm(hr)}
	if err != nil {
		return res, fmt.Errorf("finder: count: %w", err)
	}
	return res, nil
}

// ExportMatches snapshots the live matches in document order.
func (e *Engine) ExportMatches(ctx context.Context) ([]ExportRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := e.app.Matches()
	out := make([]ExportRecord, 0, len(matches))
	for _, g := range matches {
		out = append(out, exportRecord(g, e.cfg.Behavior.ExportContextChars))
	}
	return out, nil
}

// Mutate runs fn against the document as one batch. It is the only way
// for callers to change the document while the engine is live; changes
// that touch the marks schedule a replay of the last query.
func (e *Engine) Mutate(fn func(*dom.Document) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	var err error
	e.doc.Batch(func() { err = fn(e.doc) })
	return err
}

// View runs fn with the document under the engine lock. fn must not
// change the document.
func (e *Engine) View(fn func(*dom.Document) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return fn(e.doc)
}

// InjectStyles adds (or refreshes) the stylesheet for the mark classes in
// the document head.
func (e *Engine) InjectStyles() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	head := e.doc.Head()
	if head == nil {
		return errors.New("finder: inject styles: document has no head")
	}
	css := highlight.StyleSheet(e.app.Config(), e.cfg.palette())
	return e.ctrl.Run(func() error {
		var err error
		e.doc.Batch(func() {
			for c := head.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && dom.Attr(c, "id") == StyleElementID {
					if err = e.doc.Remove(c); err != nil {
						return
					}
					break
				}
			}
			style := dom.Element("style", html.Attribute{Key: "id", Val: StyleElementID})
			style.AppendChild(dom.Text(css))
			err = e.doc.AppendChild(head, style)
		})
		return err
	})
}

// LastQuery returns a copy of the last applied query, or nil.
func (e *Engine) LastQuery() *SearchSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return nil
	}
	return e.last.clone()
}

// Stats returns the reactivity counters.
func (e *Engine) Stats() Stats { return e.ctrl.Stats() }

// Close stops the watcher. A replay in progress finishes first. Close is
// idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	// Stop waits for the replay loop, which takes e.mu.
	e.ctrl.Stop()
	return nil
}

func (e *Engine) pageURL() string {
	if e.doc.URL == nil {
		return ""
	}
	return e.doc.URL.String()
}

func (e *Engine) pageKey() string { return store.PageKey(e.pageURL()) }
