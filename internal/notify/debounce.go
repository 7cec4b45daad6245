package notify

import (
	"sync"
	"time"
)

// DebounceDelay is how long filter edits are coalesced before one
// re-fetch fires.
const DebounceDelay = 300 * time.Millisecond

// Debouncer coalesces rapid filter changes into a single callback: each
// Trigger cancels the pending timer and starts a new one, so the callback
// fires once per quiet period. It is owned by the list view while it is
// open and stopped when the view closes.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer invoking fn after delay of quiet.
// A zero delay falls back to DebounceDelay.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DebounceDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the quiet-period timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
