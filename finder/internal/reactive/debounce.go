package reactive

import "time"

// debouncer is a trailing debounce: every add restarts the window and the
// timer channel fires once activity has been quiet for a full window.
type debouncer struct {
	window  time.Duration
	pending int
	timer   *time.Timer
	timerCh <-chan time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window}
}

// add records one trigger and (re)starts the window timer.
func (d *debouncer) add() {
	d.pending++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.window)
	d.timerCh = d.timer.C
}

// timerC returns the channel that fires when the window expires. It is nil
// while nothing is pending, which blocks forever in a select.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// take resets the debouncer and returns how many triggers were coalesced.
func (d *debouncer) take() int {
	n := d.pending
	d.pending = 0
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
	return n
}
