package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerDeliversInitialCount(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := NewSync(f.client(), nil)
	p := NewPoller(s, time.Hour)
	defer p.Stop()

	cmd := p.Start()
	msg := cmd()

	count, ok := msg.(CountMsg)
	require.True(t, ok)
	assert.True(t, count.OK)
	assert.Equal(t, 2, count.Count)
	assert.Equal(t, 2, s.UnreadCount())
}

func TestPollerReportsFailedPollAsNotOK(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := NewSync(f.client(), nil)
	f.srv.Close()

	p := NewPoller(s, time.Hour)
	defer p.Stop()

	msg := p.Start()()

	count, ok := msg.(CountMsg)
	require.True(t, ok)
	assert.False(t, count.OK, "badge must treat a failed poll as unknown")
	assert.Equal(t, 0, count.Count)
}

func TestPollerRefreshTriggersImmediatePoll(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := NewSync(f.client(), nil)
	p := NewPoller(s, time.Hour)
	defer p.Stop()

	// Consume the initial poll.
	msg := p.Start()()
	require.IsType(t, CountMsg{}, msg)

	f.notifications[0].Read = true
	p.Refresh()

	msg = p.WaitForNextCount()()
	count, ok := msg.(CountMsg)
	require.True(t, ok)
	assert.Equal(t, 1, count.Count)
}

func TestPollerStopIsIdempotent(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := NewSync(f.client(), nil)
	p := NewPoller(s, time.Hour)

	p.Start()()
	p.Stop()
	p.Stop()
}
