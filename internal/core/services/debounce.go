package services

import (
	"sync"
	"time"
)

// debouncer coalesces field ids reported within a window into one call.
// The window restarts on every Add (trailing edge).
type debouncer struct {
	window time.Duration
	fire   func(ids []string)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending []string
	seen    map[string]bool
	closed  bool
}

func newDebouncer(window time.Duration, fire func(ids []string)) *debouncer {
	return &debouncer{
		window: window,
		fire:   fire,
		seen:   make(map[string]bool),
	}
}

// Add records ids and restarts the window. A non-positive window fires
// immediately on the caller's goroutine.
func (d *debouncer) Add(ids []string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	for _, id := range ids {
		if !d.seen[id] {
			d.seen[id] = true
			d.pending = append(d.pending, id)
		}
	}

	if d.window <= 0 {
		batch := d.take()
		d.mu.Unlock()
		d.fire(batch)
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() { d.expire(gen) })
	d.mu.Unlock()
}

func (d *debouncer) expire(gen uint64) {
	d.mu.Lock()
	// A later Add or Stop superseded this timer.
	if gen != d.gen || d.closed || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := d.take()
	d.timer = nil
	d.mu.Unlock()

	d.fire(batch)
}

// take empties the pending set. Callers hold d.mu.
func (d *debouncer) take() []string {
	batch := d.pending
	d.pending = nil
	d.seen = make(map[string]bool)
	return batch
}

// Stop cancels the pending call. The debouncer stays usable.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancel()
}

// Close cancels the pending call and ignores further Adds.
func (d *debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancel()
	d.closed = true
}

func (d *debouncer) cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.take()
}
