package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of file events into one trigger per
// technology. A sync re-diffs the whole docs tree anyway, so per-path
// tracking buys nothing; what matters is not thrashing the index while
// an editor or git checkout is mid-write.
type Debouncer struct {
	window time.Duration
	output chan []string

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer that emits batches of technology
// names once a window passes without new events.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		output:  make(chan []string, 10),
		pending: make(map[string]struct{}),
	}
}

// Add records that a technology's docs changed. The flush timer
// restarts, extending the quiet period.
func (d *Debouncer) Add(technology string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[technology] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush runs on the timer goroutine. The send happens under the mutex
// so Stop cannot close the channel between the stopped check and the
// send.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}
	batch := make([]string, 0, len(d.pending))
	for tech := range d.pending {
		batch = append(batch, tech)
	}

	select {
	case d.output <- batch:
		d.pending = make(map[string]struct{})
	default:
		// Receiver is behind; keep the batch pending and retry after
		// another window so the trigger is not lost.
		d.timer = time.AfterFunc(d.window, d.flush)
	}
}

// Triggers returns the channel of coalesced technology batches.
func (d *Debouncer) Triggers() <-chan []string {
	return d.output
}

// Stop halts the debouncer. Pending events are dropped.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
