// Package notify keeps a locally cached view of the server's maintenance
// notifications approximately fresh under polling, manual refresh, and
// optimistic local mutation.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/rkalmar/fleetmate/internal/api"
	"github.com/rkalmar/fleetmate/internal/model"
)

// CheckResult is the outcome of a server-side notification recompute.
// Failures are reported through Success/Message rather than an error so
// callers can render them without special handling.
type CheckResult struct {
	Success bool   `json:"success"`
	Created int    `json:"created"`
	Message string `json:"message"`
}

// Sync owns the in-memory notification cache and its unread count.
//
// All state lives behind a mutex; responses of in-flight requests are
// applied only when they are still relevant (see the generation fields),
// so a stale response arriving after a newer fetch or after Reset is a
// no-op instead of clobbering fresher state.
type Sync struct {
	client *api.Client
	logger *log.Logger

	mu            sync.Mutex
	notifications []model.Notification
	unreadCount   int
	stats         model.NotificationStats
	err           error
	loading       bool

	// resetGen is bumped by Reset; any response issued before the bump
	// is discarded. listGen is bumped per list fetch so only the newest
	// issued list request may replace the cache.
	resetGen uint64
	listGen  uint64
}

// NewSync creates a Sync backed by the given API client.
func NewSync(client *api.Client, logger *log.Logger) *Sync {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Sync{client: client, logger: logger}
}

// FetchUnreadCount asks the server for the number of unread notifications.
// On any failure it returns 0 without touching cached state; callers must
// treat a failed fetch as "unknown", not "no notifications".
func (s *Sync) FetchUnreadCount(ctx context.Context) int {
	count, err := s.fetchCount(ctx)
	if err != nil {
		return 0
	}
	return count
}

// fetchCount is the error-carrying form of FetchUnreadCount, used by the
// poller to distinguish a real zero from a failed poll.
func (s *Sync) fetchCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	gen := s.resetGen
	s.mu.Unlock()

	var resp struct {
		Count int `json:"count"`
	}
	err := s.client.Get(ctx, "/notifications/count", &resp, api.TimeoutShort)
	if err != nil {
		s.logger.Debug("unread count fetch failed", "err", err)
		return 0, err
	}

	s.mu.Lock()
	if s.resetGen == gen {
		s.unreadCount = resp.Count
	}
	s.mu.Unlock()

	return resp.Count, nil
}

// FetchNotifications queries the list endpoint with the given filter and,
// on success, replaces the entire cache with the response (last successful
// fetch wins; no client-side merge). On failure the error state is set and
// the previously cached list is left in place: stale-but-present beats
// empty.
func (s *Sync) FetchNotifications(
	ctx context.Context,
	filter model.NotificationFilter,
) []model.Notification {
	s.mu.Lock()
	s.loading = true
	resetGen := s.resetGen
	s.listGen++
	listGen := s.listGen
	s.mu.Unlock()

	path := "/notifications"
	if query := filter.Query().Encode(); query != "" {
		path += "?" + query
	}

	var fetched []model.Notification
	err := s.client.Get(ctx, path, &fetched, api.TimeoutList)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resetGen != resetGen || s.listGen != listGen {
		// A newer request or a Reset superseded this response.
		return nil
	}

	s.loading = false
	if err != nil {
		s.logger.Warn("notification fetch failed", "err", err)
		s.err = fmt.Errorf("loading notifications: %w", err)
		return nil
	}

	s.err = nil
	s.notifications = fetched
	return copyNotifications(fetched)
}

// FetchStats retrieves aggregate counters from the stats endpoint. It is
// an independent call and is not guaranteed to be consistent with the
// list; failure yields the zero value.
func (s *Sync) FetchStats(ctx context.Context) model.NotificationStats {
	s.mu.Lock()
	gen := s.resetGen
	s.mu.Unlock()

	var stats model.NotificationStats
	err := s.client.Get(ctx, "/notifications/stats", &stats, api.TimeoutShort)
	if err != nil {
		s.logger.Debug("stats fetch failed", "err", err)
		return model.NotificationStats{}
	}

	s.mu.Lock()
	if s.resetGen == gen {
		s.stats = stats
	}
	s.mu.Unlock()

	return stats
}

// MarkAsRead marks a single notification read on the server and, only
// after the server confirms, in the cache. A failed write leaves the
// cache untouched so a false "read" state cannot survive it. The unread
// count is re-fetched afterwards.
func (s *Sync) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	gen := s.resetGen
	s.mu.Unlock()

	path := "/notifications/" + id + "/read"
	if err := s.client.Patch(ctx, path, nil, nil, api.TimeoutShort); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}

	s.mu.Lock()
	if s.resetGen == gen {
		for i := range s.notifications {
			if s.notifications[i].ID == id {
				s.notifications[i].Read = true
				break
			}
		}
	}
	s.mu.Unlock()

	s.FetchUnreadCount(ctx)
	return nil
}

// MarkAllAsRead sends one bulk mutation and, on success, flips every
// cached notification to read and zeroes the unread counter directly,
// with no follow-up fetch. This optimistic shortcut is deliberately
// different from the single-item path.
func (s *Sync) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	gen := s.resetGen
	s.mu.Unlock()

	err := s.client.Patch(ctx, "/notifications/read-all", nil, nil, api.TimeoutShort)
	if err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}

	s.mu.Lock()
	if s.resetGen == gen {
		for i := range s.notifications {
			s.notifications[i].Read = true
		}
		s.unreadCount = 0
	}
	s.mu.Unlock()

	return nil
}

// Deactivate dismisses a notification on the server and removes it from
// the cache on success. Only a full re-fetch can re-introduce a
// deactivated notification. The unread count is re-fetched afterwards.
func (s *Sync) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	gen := s.resetGen
	s.mu.Unlock()

	path := "/notifications/" + id + "/deactivate"
	if err := s.client.Patch(ctx, path, nil, nil, api.TimeoutShort); err != nil {
		return fmt.Errorf("deactivating notification %s: %w", id, err)
	}

	s.mu.Lock()
	if s.resetGen == gen {
		kept := s.notifications[:0]
		for _, n := range s.notifications {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		s.notifications = kept
	}
	s.mu.Unlock()

	s.FetchUnreadCount(ctx)
	return nil
}

// TriggerCheck asks the server to recompute notifications for the whole
// fleet. The call is expensive server-side and gets the long timeout
// budget. It never returns an error: failures come back as a CheckResult
// with Success false.
func (s *Sync) TriggerCheck(ctx context.Context) CheckResult {
	var result CheckResult
	err := s.client.Post(ctx, "/notifications/check", nil, &result, api.TimeoutCheck)
	if err != nil {
		s.logger.Warn("notification check failed", "err", err)
		return CheckResult{
			Success: false,
			Message: fmt.Sprintf("notification check failed: %v", err),
		}
	}

	result.Success = true
	s.FetchUnreadCount(ctx)
	return result
}

// Reset synchronously clears all local state. Called on logout so one
// user's notifications cannot leak into the next session's first render;
// responses of requests still in flight are discarded afterwards.
func (s *Sync) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = nil
	s.unreadCount = 0
	s.stats = model.NotificationStats{}
	s.err = nil
	s.loading = false
	s.resetGen++
	s.listGen++
}

// Notifications returns a copy of the cached notification list.
func (s *Sync) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyNotifications(s.notifications)
}

// UnreadCount returns the cached unread counter.
func (s *Sync) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount
}

// Stats returns the last successfully fetched aggregate counters.
func (s *Sync) Stats() model.NotificationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Err returns the current error state, set by a failed list fetch and
// cleared by the next successful one.
func (s *Sync) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether a list fetch is in flight.
func (s *Sync) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func copyNotifications(src []model.Notification) []model.Notification {
	if src == nil {
		return nil
	}
	out := make([]model.Notification, len(src))
	copy(out, src)
	return out
}
