package services

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Debouncer runs at most one pending task per key after a quiet period.
// Scheduling a key again cancels its not-yet-fired predecessor.
//
// The debouncer is safe for concurrent use.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	gen     uint64
	pending map[string]pendingTask
	stopped bool
}

type pendingTask struct {
	timer *clock.Timer
	gen   uint64
}

func NewDebouncer(clk clock.Clock, delay time.Duration) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	return &Debouncer{
		clock:   clk,
		delay:   delay,
		pending: make(map[string]pendingTask),
	}
}

// Schedule arranges for fn to run once the key has been quiet for the delay.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}

	d.gen++
	gen := d.gen
	timer := d.clock.AfterFunc(d.delay, func() {
		if !d.take(key, gen) {
			return
		}
		fn()
	})
	d.pending[key] = pendingTask{timer: timer, gen: gen}
}

// take claims the pending task if it is still the current one for key.
// A timer that fired concurrently with its own cancellation loses here.
func (d *Debouncer) take(key string, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[key]
	if !ok || p.gen != gen || d.stopped {
		return false
	}
	delete(d.pending, key)
	return true
}

// Cancel drops the pending task for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.pending[key]
	return ok
}

// Stop cancels every pending task; later Schedule calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
