// Package reactive replays the last query when the document changes under
// the marks. Bursts are coalesced by a trailing debounce; the controller's
// own rewrites are ignored through an explicit "applying" flag.
package reactive

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
)

// DefaultDebounce is the quiet period before a replay.
const DefaultDebounce = 500 * time.Millisecond

// Config tunes the controller.
type Config struct {
	// Debounce is the trailing window. Default: 500ms.
	Debounce time.Duration
	// MarkerClass identifies marks in removed subtrees.
	MarkerClass string
	Logger      *slog.Logger
}

func (c *Config) defaults() {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ReplayFunc re-applies the last query. It is called from the controller
// goroutine and is expected to wrap its document work in Controller.Run.
type ReplayFunc func(ctx context.Context) error

// Stats are point-in-time counters.
type Stats struct {
	Batches    int64 `json:"batches"`
	Affecting  int64 `json:"affecting"`
	Suppressed int64 `json:"suppressed"`
	Replays    int64 `json:"replays"`
	Errors     int64 `json:"errors"`
}

// Controller observes a document and schedules replays.
type Controller struct {
	doc    *dom.Document
	cfg    Config
	replay ReplayFunc

	applying atomic.Bool
	armed    atomic.Bool

	kick chan struct{}
	obs  *dom.Observation

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}

	batches    atomic.Int64
	affecting  atomic.Int64
	suppressed atomic.Int64
	replays    atomic.Int64
	errors     atomic.Int64
}

// New creates a controller. Call Start to begin observing.
func New(doc *dom.Document, cfg Config, replay ReplayFunc) *Controller {
	cfg.defaults()
	return &Controller{
		doc:    doc,
		cfg:    cfg,
		replay: replay,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start registers the observer and runs the debounce loop until ctx is
// cancelled or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.obs = c.doc.Observe(c.onRecords)
	go c.loop(ctx)
	c.cfg.Logger.Debug("reactive: started", "debounce", c.cfg.Debounce)
}

// Stop disconnects the observer and waits for the loop to exit. A replay
// in progress is allowed to finish.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if c.obs != nil {
			c.obs.Disconnect()
		}
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
	})
}

// Arm enables or disables replays. The owner arms the controller when a
// query has been applied and disarms it on clear.
func (c *Controller) Arm(on bool) { c.armed.Store(on) }

// Run executes fn with observation muted. Every document change made by the
// applicator goes through Run, replays included.
func (c *Controller) Run(fn func() error) error {
	c.applying.Store(true)
	defer c.applying.Store(false)
	return fn()
}

// Applying reports whether a muted run is in progress.
func (c *Controller) Applying() bool { return c.applying.Load() }

// Stats returns the current counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Batches:    c.batches.Load(),
		Affecting:  c.affecting.Load(),
		Suppressed: c.suppressed.Load(),
		Replays:    c.replays.Load(),
		Errors:     c.errors.Load(),
	}
}

func (c *Controller) onRecords(records []dom.Record) {
	c.batches.Add(1)
	if c.applying.Load() {
		c.suppressed.Add(1)
		return
	}
	if !Affecting(records, c.cfg.MarkerClass) {
		return
	}
	c.affecting.Add(1)
	if !c.armed.Load() {
		return
	}
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.done)
	d := newDebouncer(c.cfg.Debounce)
	log := c.cfg.Logger

	for {
		select {
		case <-ctx.Done():
			if n := d.take(); n > 0 {
				log.Debug("reactive: dropping pending replay", "triggers", n)
			}
			return

		case <-c.kick:
			d.add()

		case <-d.timerC():
			n := d.take()
			if !c.armed.Load() {
				continue
			}
			c.replays.Add(1)
			if err := c.replay(ctx); err != nil {
				c.errors.Add(1)
				log.Warn("reactive: replay failed", "triggers", n, "error", err)
				continue
			}
			log.Debug("reactive: replayed", "triggers", n)
		}
	}
}

// Affecting reports whether a batch may have invalidated the marks: it
// removes a mark or a subtree containing one, adds nodes, or changes text.
func Affecting(records []dom.Record, markerClass string) bool {
	for _, r := range records {
		switch r.Op {
		case dom.OpInsert, dom.OpText:
			return true
		case dom.OpRemove:
			for _, n := range r.Nodes {
				if containsMarker(n, markerClass) {
					return true
				}
			}
		}
	}
	return false
}

func containsMarker(n *html.Node, class string) bool {
	if class == "" {
		return false
	}
	if dom.HasClass(n, class) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsMarker(c, class) {
			return true
		}
	}
	return false
}
