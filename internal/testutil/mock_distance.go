package testutil

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"market-finder/internal/models"
)

// RouteCall tracks a call to the route distancer
type RouteCall struct {
	Origin models.Coordinates
	Dest   models.Coordinates
}

// MockRouteDistancer is a deterministic stand-in for the OSRM client.
// Distances are Euclidean degrees scaled to km unless overridden.
type MockRouteDistancer struct {
	// ScaleFactor converts degrees to km
	ScaleFactor float64
	// Detour multiplies every computed distance, so routes exceed haversine
	Detour float64
	// Delay is slept before answering, honouring ctx
	Delay time.Duration
	// AbsentAll makes every lookup report no route
	AbsentAll bool

	mu        sync.Mutex
	overrides map[string]float64
	absent    map[string]bool
	calls     []RouteCall
}

func NewMockRouteDistancer() *MockRouteDistancer {
	return &MockRouteDistancer{
		ScaleFactor: 111.0, // 1 degree ≈ 111km
		Detour:      1.0,
		overrides:   make(map[string]float64),
		absent:      make(map[string]bool),
	}
}

func (m *MockRouteDistancer) makeKey(origin, dest models.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f",
		models.RoundCoordinate(origin.Lat), models.RoundCoordinate(origin.Lng),
		models.RoundCoordinate(dest.Lat), models.RoundCoordinate(dest.Lng))
}

// SetDistance sets a custom distance in km for a specific origin-destination pair
func (m *MockRouteDistancer) SetDistance(origin, dest models.Coordinates, km float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[m.makeKey(origin, dest)] = km
}

// SetAbsent makes lookups for the pair report no route
func (m *MockRouteDistancer) SetAbsent(origin, dest models.Coordinates) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.absent[m.makeKey(origin, dest)] = true
}

// RouteDistance implements distance.RouteDistancer
func (m *MockRouteDistancer) RouteDistance(ctx context.Context, origin, dest models.Coordinates) (float64, bool) {
	m.mu.Lock()
	m.calls = append(m.calls, RouteCall{Origin: origin, Dest: dest})
	key := m.makeKey(origin, dest)
	override, hasOverride := m.overrides[key]
	absent := m.AbsentAll || m.absent[key]
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return 0, false
		case <-time.After(m.Delay):
		}
	}

	if absent {
		return 0, false
	}
	if hasOverride {
		return override, true
	}

	dLat := dest.Lat - origin.Lat
	dLng := dest.Lng - origin.Lng
	return math.Sqrt(dLat*dLat+dLng*dLng) * m.ScaleFactor * m.Detour, true
}

// Calls returns a copy of the recorded calls
func (m *MockRouteDistancer) Calls() []RouteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RouteCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ResetCalls clears the recorded calls
func (m *MockRouteDistancer) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
