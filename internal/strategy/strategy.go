// Package strategy picks the candidate subset for a search. Several
// independent strategies compete; the arbiter scores their outputs, validates
// the winner and falls back to the plain nearest-sort on any problem.
package strategy

import (
	"context"
	"sort"

	"market-finder/internal/distance"
	"market-finder/internal/models"
)

// Item is one selected candidate with its unrounded haversine distance
type Item struct {
	Candidate  models.Candidate
	DistanceKm float64
}

// Outcome is the result of running one strategy: Items on success, Err otherwise
type Outcome struct {
	Name  string
	Items []Item
	Err   error
}

// Input is the immutable snapshot a search runs against. Distances[i] is the
// target-to-Candidates[i] distance in km.
type Input struct {
	Target       models.Coordinates
	Candidates   []models.Candidate
	Distances    []float64
	Desired      int
	UseOptimizer bool
	Seed         uint64
	// Memo serves candidate-to-candidate distances; nil computes them directly
	Memo *distance.Memo
}

// K returns the number of items a strategy should produce
func (in Input) K() int {
	return min(in.Desired, len(in.Candidates))
}

func (in Input) item(i int) Item {
	return Item{Candidate: in.Candidates[i], DistanceKm: in.Distances[i]}
}

func (in Input) between(i, j int) float64 {
	a, b := in.Candidates[i].GetCoords(), in.Candidates[j].GetCoords()
	if in.Memo != nil {
		return in.Memo.Distance(a, b)
	}
	return distance.Haversine(a, b)
}

// Strategy produces up to Input.K() items sorted by ascending distance
type Strategy interface {
	Name() string
	Run(ctx context.Context, in Input) ([]Item, error)
}

const (
	NameNearest   = "nearest"
	NameCluster   = "cluster"
	NameWeighted  = "weighted"
	NameOptimizer = "optimizer"
)

// nearestOrder returns candidate indices by ascending distance; equal
// distances keep input order.
func nearestOrder(distances []float64) []int {
	order := make([]int, len(distances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})
	return order
}

func sortByDistance(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].DistanceKm < items[b].DistanceKm
	})
}

// Nearest is the plain nearest-by-distance sort, always available
type Nearest struct{}

func (Nearest) Name() string { return NameNearest }

func (Nearest) Run(_ context.Context, in Input) ([]Item, error) {
	return nearest(in), nil
}

func nearest(in Input) []Item {
	k := in.K()
	order := nearestOrder(in.Distances)
	items := make([]Item, 0, k)
	for _, i := range order[:k] {
		items = append(items, in.item(i))
	}
	return items
}

// Cluster prefers candidates that sit close to each other. From the 3K
// nearest it accepts, nearest first, each candidate whose mean distance to
// those already accepted is within RadiusKm, then backfills by distance.
type Cluster struct {
	RadiusKm float64
}

func (Cluster) Name() string { return NameCluster }

func (c Cluster) Run(ctx context.Context, in Input) ([]Item, error) {
	k := in.K()
	if k == 0 {
		return nil, nil
	}
	radius := c.RadiusKm
	if radius <= 0 {
		radius = 10
	}

	order := nearestOrder(in.Distances)
	pool := order[:min(3*k, len(order))]

	accepted := make([]int, 0, k)
	taken := make(map[int]bool, k)
	for _, i := range pool {
		if len(accepted) == k {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(accepted) > 0 {
			sum := 0.0
			for _, j := range accepted {
				sum += in.between(i, j)
			}
			if sum/float64(len(accepted)) > radius {
				continue
			}
		}
		accepted = append(accepted, i)
		taken[i] = true
	}

	for _, i := range order {
		if len(accepted) == k {
			break
		}
		if !taken[i] {
			accepted = append(accepted, i)
			taken[i] = true
		}
	}

	items := make([]Item, len(accepted))
	for n, i := range accepted {
		items[n] = in.item(i)
	}
	sortByDistance(items)
	return items, nil
}

// Weighted discounts the distance of candidates with richer metadata, a weak
// proxy for established markets, and keeps the K best scores.
type Weighted struct{}

func (Weighted) Name() string { return NameWeighted }

// WeightedScore returns the discounted distance used for ranking
func WeightedScore(c models.Candidate, km float64) float64 {
	score := km
	if len([]rune(c.Name)) > 15 {
		score *= 0.95
	}
	if len([]rune(c.Description)) > 20 {
		score *= 0.98
	}
	return score
}

func (Weighted) Run(_ context.Context, in Input) ([]Item, error) {
	k := in.K()
	scores := make([]float64, len(in.Candidates))
	for i, c := range in.Candidates {
		scores[i] = WeightedScore(c, in.Distances[i])
	}

	order := nearestOrder(scores)
	items := make([]Item, 0, k)
	for _, i := range order[:k] {
		items = append(items, in.item(i))
	}
	sortByDistance(items)
	return items, nil
}
