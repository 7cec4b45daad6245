package counter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkalmar/fleetmate/internal/api"
	"github.com/rkalmar/fleetmate/internal/model"
)

// newFakeCounterServer serves per-vehicle counter info from the given map.
// Vehicles not in the map answer 404.
func newFakeCounterServer(t *testing.T, infos map[string]model.CounterInfo) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/fuel-entries/counter-info/"):]
		info, ok := infos[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(info)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGuard(t *testing.T, infos map[string]model.CounterInfo) *Guard {
	t.Helper()
	srv := newFakeCounterServer(t, infos)
	return NewGuard(api.New(srv.URL, api.StaticToken("t")), nil)
}

func truckInfo() map[string]model.CounterInfo {
	return map[string]model.CounterInfo{
		"truck-1": {
			MinAllowedCounter: 182500,
			LastRecord: &model.LastRecord{
				Counter:     182500,
				DateTime:    time.Date(2026, 8, 15, 14, 30, 0, 0, time.UTC),
				Type:        model.RecordFuel,
				Description: "Shell A1 northbound",
			},
		},
		"truck-2": {MinAllowedCounter: 9100},
	}
}

func TestValidateAgainstFetchedThreshold(t *testing.T) {
	g := newTestGuard(t, truckInfo())
	g.FetchCounterInfo(context.Background(), "truck-1")
	require.NoError(t, g.Err())

	cases := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"below threshold", "182499", false},
		{"at threshold", "182500", true},
		{"above threshold", "183000", true},
		{"not a number", "182k", false},
		{"empty", "", false},
		{"whitespace padded", " 182600 ", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := g.Validate("truck-1", tc.raw)
			assert.Equal(t, tc.valid, result.IsValid)
			if !tc.valid {
				assert.NotEmpty(t, result.Message)
			}
		})
	}
}

func TestValidatePermissiveWithoutCachedInfo(t *testing.T) {
	g := newTestGuard(t, truckInfo())

	// Nothing fetched yet: the guard has no data and stays permissive.
	assert.True(t, g.Validate("truck-1", "5").IsValid)

	// No vehicle selected.
	g.FetchCounterInfo(context.Background(), "truck-1")
	assert.True(t, g.Validate("", "5").IsValid)
}

func TestVehicleSwitchClearsThresholdSynchronously(t *testing.T) {
	g := newTestGuard(t, truckInfo())
	g.FetchCounterInfo(context.Background(), "truck-1")
	require.Equal(t, 182500, g.MinAllowedCounter())

	// Switching to a vehicle whose fetch fails must not keep the old
	// vehicle's threshold.
	g.FetchCounterInfo(context.Background(), "truck-missing")

	assert.Error(t, g.Err())
	assert.Equal(t, 0, g.MinAllowedCounter())
	assert.Nil(t, g.LastRecord())
	assert.True(t, g.Validate("truck-missing", "1").IsValid,
		"guard degrades to permissive, not blocking")
}

func TestValidateIgnoresStaleVehicleThreshold(t *testing.T) {
	g := newTestGuard(t, truckInfo())
	g.FetchCounterInfo(context.Background(), "truck-1")

	// The form asks about truck-2 before its fetch completed; the cached
	// truck-1 threshold must not apply.
	assert.True(t, g.Validate("truck-2", "10").IsValid)
}

func TestFetchCounterInfoEmptyVehicleClears(t *testing.T) {
	g := newTestGuard(t, truckInfo())
	g.FetchCounterInfo(context.Background(), "truck-1")
	require.Equal(t, 182500, g.MinAllowedCounter())

	g.FetchCounterInfo(context.Background(), "")

	assert.Equal(t, 0, g.MinAllowedCounter())
	assert.Nil(t, g.LastRecord())
	assert.NoError(t, g.Err())
	assert.False(t, g.Loading())
}

func TestLastRecordExposedForExplanation(t *testing.T) {
	g := newTestGuard(t, truckInfo())
	g.FetchCounterInfo(context.Background(), "truck-1")

	rec := g.LastRecord()
	require.NotNil(t, rec)
	assert.Equal(t, 182500, rec.Counter)
	assert.Equal(t, model.RecordFuel, rec.Type)
	assert.Equal(t, "Shell A1 northbound", rec.Description)
}

func TestFetchErrorsNeverEscapeTheGuard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGuard(api.New(srv.URL, api.StaticToken("expired")), nil)
	g.FetchCounterInfo(context.Background(), "truck-1")

	assert.Error(t, g.Err())
	assert.True(t, api.IsAuthError(g.Err()))
	assert.True(t, g.Validate("truck-1", "1").IsValid)
}
