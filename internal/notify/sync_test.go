package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkalmar/fleetmate/internal/api"
	"github.com/rkalmar/fleetmate/internal/model"
)

// fakeFleet is a minimal in-memory stand-in for the fleet server's
// notification endpoints.
type fakeFleet struct {
	srv *httptest.Server

	notifications []model.Notification
	failMutations bool
	failList      bool
	countCalls    atomic.Int64
	listGate      chan struct{} // when set, list requests block until closed
}

func newFakeFleet(t *testing.T, notifications []model.Notification) *fakeFleet {
	t.Helper()

	f := &fakeFleet{notifications: notifications}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /notifications/count", func(w http.ResponseWriter, r *http.Request) {
		f.countCalls.Add(1)
		unread := 0
		for _, n := range f.notifications {
			if !n.Read {
				unread++
			}
		}
		json.NewEncoder(w).Encode(map[string]int{"count": unread})
	})

	mux.HandleFunc("GET /notifications", func(w http.ResponseWriter, r *http.Request) {
		if f.listGate != nil {
			<-f.listGate
		}
		if f.failList {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(f.notifications)
	})

	mux.HandleFunc("GET /notifications/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.NotificationStats{
			Total: len(f.notifications),
		})
	})

	mux.HandleFunc("PATCH /notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		if f.failMutations {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		for i := range f.notifications {
			f.notifications[i].Read = true
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("PATCH /notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		if f.failMutations {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		id := r.PathValue("id")
		for i := range f.notifications {
			if f.notifications[i].ID == id {
				f.notifications[i].Read = true
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("PATCH /notifications/{id}/deactivate", func(w http.ResponseWriter, r *http.Request) {
		if f.failMutations {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		id := r.PathValue("id")
		kept := f.notifications[:0]
		for _, n := range f.notifications {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		f.notifications = kept
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /notifications/check", func(w http.ResponseWriter, r *http.Request) {
		if f.failMutations {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"created": 2,
			"message": "2 notifications created",
		})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFleet) client() *api.Client {
	return api.New(f.srv.URL, api.StaticToken("test-token"))
}

func sampleNotifications() []model.Notification {
	km := func(v int) *int { return &v }
	return []model.Notification{
		{ID: "n1", Type: model.NotificationOverdue, CarDetails: "Volvo FH 42-ABC",
			Message: "Oil change overdue", KmToNextService: km(-350), Read: false,
			CreatedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)},
		{ID: "n2", Type: model.NotificationWarning, CarDetails: "DAF XF 11-KLM",
			Message: "Service due soon", KmToNextService: km(800), Read: false,
			CreatedAt: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)},
		{ID: "n3", Type: model.NotificationInfo, CarDetails: "MAN TGX 73-XYZ",
			Message: "Inspection scheduled", Read: true,
			CreatedAt: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)},
	}
}

func newTestSync(t *testing.T, f *fakeFleet) *Sync {
	t.Helper()
	s := NewSync(f.client(), nil)
	got := s.FetchNotifications(context.Background(), model.NotificationFilter{})
	require.Len(t, got, len(f.notifications))
	return s
}

func TestFetchNotificationsReplacesCacheAndClearsError(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := NewSync(f.client(), nil)

	// Seed an error via a failed fetch first.
	f.failList = true
	got := s.FetchNotifications(context.Background(), model.NotificationFilter{})
	assert.Nil(t, got)
	assert.Error(t, s.Err())

	f.failList = false
	got = s.FetchNotifications(context.Background(), model.NotificationFilter{})
	assert.Len(t, got, 3)
	assert.NoError(t, s.Err())
	assert.Len(t, s.Notifications(), 3)
}

func TestFetchNotificationsFailureKeepsStaleCache(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)

	f.failList = true
	got := s.FetchNotifications(context.Background(), model.NotificationFilter{})

	assert.Nil(t, got, "failed fetch returns no list")
	assert.Error(t, s.Err())
	assert.Len(t, s.Notifications(), 3, "stale list stays displayed")
	assert.False(t, s.Loading())
}

func TestMarkAsReadFlipsExactlyOneEntry(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)

	require.NoError(t, s.MarkAsRead(context.Background(), "n1"))

	for _, n := range s.Notifications() {
		if n.ID == "n1" {
			assert.True(t, n.Read)
		} else {
			assert.Equal(t, n.ID == "n3", n.Read, "other read flags unchanged")
		}
	}
	assert.Equal(t, 1, s.UnreadCount(), "count re-fetched after the write")
}

func TestMarkAsReadFailureLeavesCacheUntouched(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)
	before := s.Notifications()

	f.failMutations = true
	err := s.MarkAsRead(context.Background(), "n1")

	require.Error(t, err)
	assert.Equal(t, before, s.Notifications())
}

func TestMarkAllAsReadShortcutsCounterWithoutRefetch(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)
	countCallsBefore := f.countCalls.Load()

	require.NoError(t, s.MarkAllAsRead(context.Background()))

	for _, n := range s.Notifications() {
		assert.True(t, n.Read)
	}
	assert.Equal(t, 0, s.UnreadCount())
	assert.Equal(t, countCallsBefore, f.countCalls.Load(),
		"bulk path sets the counter directly, no round trip")
}

func TestMarkAllAsReadFailureChangesNothing(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)
	before := s.Notifications()

	f.failMutations = true
	require.Error(t, s.MarkAllAsRead(context.Background()))
	assert.Equal(t, before, s.Notifications())
}

func TestDeactivateRemovesEntry(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)

	require.NoError(t, s.Deactivate(context.Background(), "n2"))

	got := s.Notifications()
	assert.Len(t, got, 2)
	for _, n := range got {
		assert.NotEqual(t, "n2", n.ID)
	}
}

func TestDeactivateFailureChangesNothing(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)
	before := s.Notifications()

	f.failMutations = true
	require.Error(t, s.Deactivate(context.Background(), "n2"))
	assert.Equal(t, before, s.Notifications())
}

func TestTriggerCheckReportsFailureWithoutError(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)

	result := s.TriggerCheck(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Created)

	f.failMutations = true
	result = s.TriggerCheck(context.Background())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)
}

func TestFetchUnreadCountFailureReturnsZeroAndKeepsState(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)

	assert.Equal(t, 2, s.FetchUnreadCount(context.Background()))
	assert.Equal(t, 2, s.UnreadCount())

	f.srv.Close()
	assert.Equal(t, 0, s.FetchUnreadCount(context.Background()))
	assert.Equal(t, 2, s.UnreadCount(), "cached count survives a failed fetch")
}

func TestFetchUnreadCountUnder401NeverPanics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewSync(api.New(srv.URL, api.StaticToken("expired")), nil)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, s.FetchUnreadCount(context.Background()))
	}
}

func TestFetchStatsFailureYieldsZeroValue(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)

	stats := s.FetchStats(context.Background())
	assert.Equal(t, 3, stats.Total)

	f.srv.Close()
	assert.Equal(t, model.NotificationStats{}, s.FetchStats(context.Background()))
	assert.Equal(t, 3, s.Stats().Total, "cached stats survive a failed fetch")
}

func TestResetClearsEverything(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	s := newTestSync(t, f)
	s.FetchUnreadCount(context.Background())
	s.FetchStats(context.Background())

	s.Reset()

	assert.Empty(t, s.Notifications())
	assert.Equal(t, 0, s.UnreadCount())
	assert.Equal(t, model.NotificationStats{}, s.Stats())
	assert.NoError(t, s.Err())
	assert.False(t, s.Loading())
}

func TestLateResponseAfterResetIsDiscarded(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	f.listGate = make(chan struct{})
	s := NewSync(f.client(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.FetchNotifications(context.Background(), model.NotificationFilter{})
	}()

	// Reset while the list request is still blocked server-side.
	time.Sleep(20 * time.Millisecond)
	s.Reset()
	close(f.listGate)
	<-done

	assert.Empty(t, s.Notifications(), "late resolution must not repopulate state")
	assert.Equal(t, 0, s.UnreadCount())
}

func TestNewerListFetchWinsOverStaleOne(t *testing.T) {
	f := newFakeFleet(t, sampleNotifications())
	f.listGate = make(chan struct{})
	s := NewSync(f.client(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.FetchNotifications(context.Background(), model.NotificationFilter{})
	}()
	time.Sleep(20 * time.Millisecond)

	// A second fetch issued later completes first.
	f.notifications = f.notifications[:1]
	gate := f.listGate
	f.listGate = nil
	got := s.FetchNotifications(context.Background(), model.NotificationFilter{})
	require.Len(t, got, 1)

	// Now let the first (stale) response land.
	close(gate)
	<-done

	assert.Len(t, s.Notifications(), 1, "stale response is not applied")
}
