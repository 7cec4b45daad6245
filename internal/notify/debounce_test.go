package notify

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCoalescesRapidTriggers(t *testing.T) {
	var fired atomic.Int64
	d := NewDebouncer(30*time.Millisecond, func() { fired.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int64(1), fired.Load(), "one callback per quiet period")
}

func TestDebouncerFiresAgainAfterQuietPeriod(t *testing.T) {
	var fired atomic.Int64
	d := NewDebouncer(20*time.Millisecond, func() { fired.Add(1) })

	d.Trigger()
	time.Sleep(50 * time.Millisecond)
	d.Trigger()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int64(2), fired.Load())
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	var fired atomic.Int64
	d := NewDebouncer(20*time.Millisecond, func() { fired.Add(1) })

	d.Trigger()
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(0), fired.Load())
}
