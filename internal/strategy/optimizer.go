package strategy

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"

	"market-finder/internal/logging"
	"market-finder/internal/optimizer"
	"market-finder/internal/selection"
)

// seedStride separates the seeds of repeated runs
const seedStride = 0x9E3779B97F4A7C15

// Optimizer runs the population search Runs times from seeds derived from
// Input.Seed and keeps the lowest-fitness subset.
type Optimizer struct {
	Config optimizer.Config
	Runs   int
}

func (Optimizer) Name() string { return NameOptimizer }

func (o Optimizer) Run(ctx context.Context, in Input) ([]Item, error) {
	k := in.K()
	n := len(in.Candidates)
	if k == 0 {
		return nil, nil
	}
	runs := max(o.Runs, 1)

	eval := selection.NewEvaluator(in.Distances, k)

	var (
		best    optimizer.Result
		found   bool
		lastErr error
	)
	for r := 0; r < runs; r++ {
		cfg := o.Config
		cfg.Seed = in.Seed + uint64(r)*seedStride
		rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^seedStride))

		res, err := optimizer.Run(ctx, n, optimizer.NewOperators(eval, k, cfg, rng), cfg)
		if err != nil {
			lastErr = err
			continue
		}
		logging.Debug().
			Int("run", r).
			Uint64("seed", cfg.Seed).
			Str("reason", string(res.Reason)).
			Int("generations", res.Generations).
			Float64("fitness", res.Fitness).
			Msg("[GA] Optimizer run complete")

		if !found || res.Fitness < best.Fitness {
			best, found = res, true
		}
		if res.Reason == optimizer.ReasonInterrupted {
			break
		}
	}
	if !found {
		if lastErr == nil {
			lastErr = optimizer.ErrNoSolution
		}
		return nil, lastErr
	}

	indices := best.Best.Indices()
	if len(indices) == 0 {
		return nil, errors.Join(optimizer.ErrNoSolution, errors.New("empty best vector"))
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return in.Distances[indices[a]] < in.Distances[indices[b]]
	})
	if len(indices) > k {
		indices = indices[:k]
	}

	taken := make(map[int]bool, k)
	items := make([]Item, 0, k)
	for _, i := range indices {
		taken[i] = true
		items = append(items, in.item(i))
	}

	// pad from the nearest-sort when the subset came back short
	for _, i := range nearestOrder(in.Distances) {
		if len(items) >= k {
			break
		}
		if !taken[i] {
			taken[i] = true
			items = append(items, in.item(i))
		}
	}

	sortByDistance(items)
	return items, nil
}
