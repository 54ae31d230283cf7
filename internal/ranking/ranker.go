// Package ranking turns a selected subset into the final, externally visible
// ranking, optionally refining distances with road routes.
package ranking

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"market-finder/internal/distance"
	"market-finder/internal/logging"
	"market-finder/internal/models"
	"market-finder/internal/strategy"
)

const (
	DefaultConcurrency = 4
	DefaultTimeout     = 3 * time.Second
)

// Ranker is the last step of every search. Route lookups are optional and
// independent; any failure falls back to the haversine distance.
type Ranker struct {
	// Route may be nil, which ranks by haversine only
	Route       distance.RouteDistancer
	Concurrency int
	Timeout     time.Duration
}

// New returns a ranker with default limits
func New(route distance.RouteDistancer) *Ranker {
	return &Ranker{Route: route, Concurrency: DefaultConcurrency, Timeout: DefaultTimeout}
}

// RoundKm rounds a distance to 2 decimal places
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// Rank resolves a distance for every item, rounds it, sorts ascending (equal
// distances keep input order), drops repeated candidate IDs and keeps at most k.
func (r *Ranker) Rank(ctx context.Context, target models.Coordinates, items []strategy.Item, k int) []models.RankedResult {
	if len(items) == 0 || k <= 0 {
		return []models.RankedResult{}
	}

	results := make([]models.RankedResult, len(items))
	for i, it := range items {
		c := it.Candidate
		results[i] = models.RankedResult{
			CandidateID: c.ID,
			DistanceKm:  it.DistanceKm,
			Latitude:    c.Lat,
			Longitude:   c.Lng,
			Candidate:   &c,
		}
	}

	if r.Route != nil {
		r.refine(ctx, target, results)
	}

	for i := range results {
		results[i].DistanceKm = RoundKm(results[i].DistanceKm)
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].DistanceKm < results[b].DistanceKm
	})

	seen := make(map[int64]struct{}, len(results))
	out := make([]models.RankedResult, 0, min(k, len(results)))
	for _, res := range results {
		if len(out) == k {
			break
		}
		if _, dup := seen[res.CandidateID]; dup {
			continue
		}
		seen[res.CandidateID] = struct{}{}
		out = append(out, res)
	}
	return out
}

// refine replaces haversine distances with route distances where available.
// Each goroutine writes only its own slot.
func (r *Ranker) refine(ctx context.Context, target models.Coordinates, results []models.RankedResult) {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	absent := make([]bool, len(results))

	for i := range results {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			dest := models.Coordinates{Lat: results[i].Latitude, Lng: results[i].Longitude}
			km, ok := r.Route.RouteDistance(lctx, target, dest)
			if !ok || math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
				absent[i] = true
				return nil
			}
			results[i].DistanceKm = km
			results[i].RouteBased = true
			return nil
		})
	}
	_ = g.Wait()

	missing := 0
	for _, a := range absent {
		if a {
			missing++
		}
	}
	if missing > 0 {
		logging.Warn().Int("absent", missing).Int("total", len(results)).Msg("[RANKER] Route distance unavailable, using haversine")
	}
}
