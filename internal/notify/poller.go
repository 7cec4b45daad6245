package notify

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultPollInterval is used when no interval is configured.
const defaultPollInterval = 2 * time.Minute

// CountMsg is a tea.Msg carrying the result of an unread-count poll.
// OK is false when the poll failed; the badge should keep its previous
// value in that case rather than showing zero.
type CountMsg struct {
	Count int
	OK    bool
}

// Poller refreshes the unread-count badge on a fixed interval for the
// lifetime of an authenticated session. Ticks are independent: a tick
// firing while a previous request is still in flight proceeds without an
// in-flight guard.
type Poller struct {
	sync     *Sync
	interval time.Duration

	countCh   chan CountMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewPoller creates a Poller refreshing at the given interval.
func NewPoller(s *Sync, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		sync:      s,
		interval:  interval,
		countCh:   make(chan CountMsg, 16),
		triggerCh: make(chan struct{}, 16),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a subscription command
// that delivers CountMsg values to the Bubble Tea runtime. Calling Start
// on a running poller returns only the subscription.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return p.waitForCount()
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go p.loop(stop)

	return p.waitForCount()
}

// Stop halts the polling goroutine. Used on quit and logout.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll without waiting for the next tick.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// Channel full; a poll is already queued.
	}
}

// loop runs the poll cycle until Stop is called. Each Start gets its own
// stop channel so the poller can be restarted after a logout.
func (p *Poller) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial fetch so the badge does not wait a full interval.
	p.poll()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll performs one count fetch and publishes the result.
func (p *Poller) poll() {
	count, err := p.sync.fetchCount(context.Background())
	msg := CountMsg{Count: count, OK: err == nil}

	select {
	case p.countCh <- msg:
	default:
		// Drop if the channel is full to avoid blocking the poller.
	}
}

// waitForCount returns a tea.Cmd that waits for the next poll result.
// Callers re-subscribe after each CountMsg to keep listening.
func (p *Poller) waitForCount() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-p.countCh
		if !ok {
			return nil
		}
		return msg
	}
}

// WaitForNextCount returns a tea.Cmd that waits for the next poll result.
// Call after processing a CountMsg to continue listening.
func (p *Poller) WaitForNextCount() tea.Cmd {
	return p.waitForCount()
}
