// Package watch runs an action when a file changes on disk. Events are
// debounced: editors often write a file in several steps, and the action
// fires once the file has been quiet for the debounce window.
//
// Typical usage:
//
//	w := watch.New("page.html", watch.Options{Debounce: 200 * time.Millisecond})
//	err := w.OnChange(ctx, func() error { return reload() })
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options tunes the watcher.
type Options struct {
	// Debounce is the quiet period after the last event before the action
	// fires. 0 fires on every event. Default: 100ms.
	Debounce time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Debounce < 0 {
		o.Debounce = 0
	} else if o.Debounce == 0 {
		o.Debounce = 100 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher watches one file. The parent directory is watched, so a file
// replaced by rename (the usual editor save) keeps being seen.
type Watcher struct {
	path string
	opts Options

	events   atomic.Int64
	changes  atomic.Int64
	errors   atomic.Int64
	reloads  atomic.Int64
	reloadNs atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Events        int64         `json:"events"`
	Changes       int64         `json:"changes"`
	Errors        int64         `json:"errors"`
	Reloads       int64         `json:"reloads"`
	AvgReloadTime time.Duration `json:"avg_reload_time"`
}

// New creates a Watcher for path. Call OnChange to start it.
func New(path string, opts Options) *Watcher {
	opts.defaults()
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Watcher{path: path, opts: opts}
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	s := Stats{
		Events:  w.events.Load(),
		Changes: w.changes.Load(),
		Errors:  w.errors.Load(),
		Reloads: w.reloads.Load(),
	}
	if s.Reloads > 0 {
		s.AvgReloadTime = time.Duration(w.reloadNs.Load() / s.Reloads)
	}
	return s
}

// OnChange blocks until ctx is cancelled, calling action after each
// debounced write or create of the file. An action error is logged and
// counted; the watcher keeps running.
func (w *Watcher) OnChange(ctx context.Context, action func() error) error {
	log := w.opts.Logger

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	log.Info("watch: started", "path", w.path, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			log.Info("watch: stopped", "path", w.path)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.events.Add(1)
			if !w.relevant(ev) {
				continue
			}
			w.changes.Add(1)
			if w.opts.Debounce == 0 {
				w.fire(log, action)
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.opts.Debounce)
			debounceCh = debounceTimer.C
			log.Debug("watch: change detected, debouncing", "op", ev.Op.String())

		case <-debounceCh:
			debounceCh = nil
			w.fire(log, action)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.errors.Add(1)
			log.Warn("watch: watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func (w *Watcher) fire(log *slog.Logger, action func() error) {
	start := time.Now()
	if err := action(); err != nil {
		w.errors.Add(1)
		log.Error("watch: reload failed", "path", w.path, "error", err)
		return
	}
	elapsed := time.Since(start)
	w.reloads.Add(1)
	w.reloadNs.Add(int64(elapsed))
	log.Info("watch: reload complete", "path", w.path, "duration", elapsed)
}
