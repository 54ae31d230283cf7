// Package optimizer runs a population search for the fixed-size candidate
// subset with the lowest fitness.
//
// A run is a loop of evaluate, record, convergence check, tournament
// selection, single-point crossover and count-preserving mutation. The best
// individuals ever seen are kept in a hall of fame and carried into each new
// generation unchanged. All randomness comes from one generator owned by the
// loop goroutine; evaluation fans out across workers but is pure, so a run is
// reproducible from its seed regardless of the worker count.
package optimizer

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"market-finder/internal/logging"
	"market-finder/internal/metrics"
	"market-finder/internal/selection"
)

// Reason records why a run stopped
type Reason string

const (
	ReasonMaxGenerations Reason = "max_generations"
	ReasonConverged      Reason = "converged"
	ReasonInterrupted    Reason = "interrupted"
)

// ErrNoSolution is returned when a run ends without any finite-fitness individual
var ErrNoSolution = errors.New("optimizer produced no solution")

// GenerationStats summarizes one evaluated generation. Only finite fitness
// values contribute to Best, Worst, Mean and StdDev.
type GenerationStats struct {
	Generation int
	Best       float64
	Worst      float64
	Mean       float64
	StdDev     float64
	// Diversity is the mean pairwise Hamming distance divided by vector length
	Diversity  float64
	Stagnation int
}

// Result is the outcome of one run
type Result struct {
	Best        selection.Vector
	Fitness     float64
	Generations int
	Reason      Reason
	History     []GenerationStats
	HallOfFame  []Individual
	Duration    time.Duration
}

// Run searches subsets of n candidates using ops. Cancelling ctx stops the run
// at the next generation boundary; the hall of fame gathered so far is still
// returned with ReasonInterrupted and a nil error.
func Run(ctx context.Context, n int, ops Operators, cfg Config) (Result, error) {
	start := time.Now()
	cfg = cfg.Normalize()

	if n == 0 {
		return Result{}, ErrNoSolution
	}

	hof := NewHallOfFame(cfg.EliteSize)
	history := make([]GenerationStats, 0, cfg.Generations)

	seq := 0
	pop := make([]Individual, cfg.PopulationSize)
	for i := range pop {
		pop[i] = Individual{Genes: ops.Init(), Seq: seq}
		seq++
	}

	bestSoFar := math.Inf(1)
	stagnation := 0
	reason := ReasonMaxGenerations
	gen := 0

	for ; gen < cfg.Generations; gen++ {
		if err := evaluate(pop, ops, cfg.Workers); err != nil {
			return Result{}, err
		}
		hof.Update(pop)

		stats := record(gen, pop, n)
		if stats.Best < bestSoFar-cfg.Epsilon {
			bestSoFar = stats.Best
			stagnation = 0
		} else {
			stagnation++
		}
		stats.Stagnation = stagnation
		history = append(history, stats)

		logging.Debug().
			Int("generation", gen).
			Float64("best", stats.Best).
			Float64("mean", stats.Mean).
			Float64("diversity", stats.Diversity).
			Int("stagnation", stagnation).
			Msg("[GA] Generation evaluated")

		if stagnation >= cfg.StagnationLimit {
			reason = ReasonConverged
			gen++
			break
		}
		if ctx.Err() != nil {
			reason = ReasonInterrupted
			gen++
			break
		}
		if gen+1 == cfg.Generations {
			continue
		}

		pop = nextGeneration(pop, hof, ops, cfg.PopulationSize, &seq)
	}

	best, ok := hof.Best()
	if !ok {
		return Result{}, ErrNoSolution
	}

	res := Result{
		Best:        best.Genes.Clone(),
		Fitness:     best.Fitness,
		Generations: gen,
		Reason:      reason,
		History:     history,
		HallOfFame:  hof.Members(),
		Duration:    time.Since(start),
	}

	metrics.RecordOptimizerRun(string(reason), gen, best.Fitness)
	logging.Debug().
		Str("reason", string(reason)).
		Int("generations", gen).
		Float64("fitness", best.Fitness).
		Dur("duration", res.Duration).
		Msg("[GA] Run finished")

	return res, nil
}

// evaluate scores every individual not yet scored. Each goroutine writes
// only its own slot.
func evaluate(pop []Individual, ops Operators, workers int) error {
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range pop {
		if pop[i].evaluated {
			continue
		}
		g.Go(func() error {
			pop[i].Fitness = ops.Evaluate(pop[i].Genes)
			pop[i].evaluated = true
			return nil
		})
	}
	return g.Wait()
}

// nextGeneration seats the hall of fame first, then fills the rest with
// recombined and mutated offspring of tournament winners.
func nextGeneration(pop []Individual, hof *HallOfFame, ops Operators, size int, seq *int) []Individual {
	next := make([]Individual, 0, size)
	for _, elite := range hof.Members() {
		if len(next) == size {
			break
		}
		next = append(next, elite)
	}

	for len(next) < size {
		p1 := pop[ops.Select(pop)]
		p2 := pop[ops.Select(pop)]

		c1, c2 := ops.Crossover(p1.Genes, p2.Genes)
		ops.Mutate(c1)
		ops.Mutate(c2)

		next = append(next, Individual{Genes: c1, Seq: *seq})
		*seq++
		if len(next) < size {
			next = append(next, Individual{Genes: c2, Seq: *seq})
			*seq++
		}
	}
	return next
}

func record(gen int, pop []Individual, n int) GenerationStats {
	finite := make([]float64, 0, len(pop))
	for _, ind := range pop {
		if !math.IsInf(ind.Fitness, 0) && !math.IsNaN(ind.Fitness) {
			finite = append(finite, ind.Fitness)
		}
	}

	stats := GenerationStats{
		Generation: gen,
		Best:       math.Inf(1),
		Worst:      math.Inf(1),
		Mean:       math.Inf(1),
		Diversity:  diversity(pop, n),
	}
	if len(finite) == 0 {
		return stats
	}

	stats.Best, stats.Worst = finite[0], finite[0]
	for _, f := range finite[1:] {
		stats.Best = math.Min(stats.Best, f)
		stats.Worst = math.Max(stats.Worst, f)
	}
	stats.Mean, stats.StdDev = stat.PopMeanStdDev(finite, nil)
	return stats
}

// diversity is the mean pairwise Hamming distance over n, computed from per
// position counts: a position selected in c of P individuals differs in
// c*(P-c) pairs.
func diversity(pop []Individual, n int) float64 {
	p := len(pop)
	if p < 2 || n == 0 {
		return 0
	}
	counts := make([]int, n)
	for _, ind := range pop {
		for i, g := range ind.Genes[:min(len(ind.Genes), n)] {
			if g {
				counts[i]++
			}
		}
	}
	total := 0
	for _, c := range counts {
		total += c * (p - c)
	}
	pairs := p * (p - 1) / 2
	return float64(total) / float64(pairs) / float64(n)
}
