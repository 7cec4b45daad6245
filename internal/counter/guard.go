// Package counter guards odometer/runtime-hours entry against readings
// that would make a vehicle's recorded counter decrease across its
// combined fuel and service history.
package counter

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/rkalmar/fleetmate/internal/api"
	"github.com/rkalmar/fleetmate/internal/model"
)

// Result is the outcome of a counter validation. Invalid input is
// reported through the message, never as an error.
type Result struct {
	IsValid bool
	Message string
}

// Guard holds the per-vehicle minimum-allowed-counter fetched from the
// server and validates candidate readings against it. With no cached
// info the guard is permissive: it validates nothing rather than block
// the form while the server is unreachable.
type Guard struct {
	client *api.Client
	logger *log.Logger

	mu        sync.Mutex
	vehicleID string
	info      *model.CounterInfo
	err       error
	loading   bool

	// gen invalidates in-flight fetches when the selected vehicle
	// changes before they resolve.
	gen uint64
}

// NewGuard creates a Guard backed by the given API client.
func NewGuard(client *api.Client, logger *log.Logger) *Guard {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Guard{client: client, logger: logger}
}

// FetchCounterInfo loads the counter threshold for the given vehicle.
// The previous vehicle's info is cleared synchronously before the fetch
// is issued, so a half-switched form can never validate against the old
// vehicle's threshold. An empty vehicleID just clears the cache. On
// fetch failure the info stays cleared and the error state is set.
func (g *Guard) FetchCounterInfo(ctx context.Context, vehicleID string) {
	g.mu.Lock()
	g.vehicleID = vehicleID
	g.info = nil
	g.err = nil
	g.gen++
	gen := g.gen

	if vehicleID == "" {
		g.loading = false
		g.mu.Unlock()
		return
	}
	g.loading = true
	g.mu.Unlock()

	var info model.CounterInfo
	path := "/fuel-entries/counter-info/" + vehicleID
	err := g.client.Get(ctx, path, &info, api.TimeoutShort)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gen != gen {
		// The vehicle changed again while this fetch was in flight.
		return
	}

	g.loading = false
	if err != nil {
		g.logger.Warn("counter info fetch failed", "vehicle", vehicleID, "err", err)
		g.err = fmt.Errorf("loading counter info: %w", err)
		return
	}

	g.info = &info
}

// Validate checks a candidate counter reading against the cached
// threshold. It is pure over the cached state: no vehicle or no cached
// info means valid by default, a non-numeric value is a parse failure,
// and anything below the threshold is rejected with a message naming it.
func (g *Guard) Validate(vehicleID, raw string) Result {
	g.mu.Lock()
	info := g.info
	cachedVehicle := g.vehicleID
	g.mu.Unlock()

	if vehicleID == "" || info == nil || vehicleID != cachedVehicle {
		return Result{IsValid: true}
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Result{
			IsValid: false,
			Message: "counter must be a whole number",
		}
	}

	if value < info.MinAllowedCounter {
		return Result{
			IsValid: false,
			Message: fmt.Sprintf(
				"counter must be at least %d (the highest recorded reading for this vehicle)",
				info.MinAllowedCounter,
			),
		}
	}

	return Result{IsValid: true}
}

// MinAllowedCounter returns the cached threshold, 0 when none is cached.
func (g *Guard) MinAllowedCounter() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.info == nil {
		return 0
	}
	return g.info.MinAllowedCounter
}

// LastRecord returns the record that set the threshold, nil when unknown.
func (g *Guard) LastRecord() *model.LastRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.info == nil {
		return nil
	}
	return g.info.LastRecord
}

// Err returns the component-local error from the last fetch, nil after a
// success or a clear. Fetch errors never propagate past the guard; the
// form renders this as a warning and keeps working.
func (g *Guard) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Loading reports whether a counter-info fetch is in flight.
func (g *Guard) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}
