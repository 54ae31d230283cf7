package optimizer

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-finder/internal/selection"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// shuffledDistances returns 0..n-1 km in a fixed shuffled order
func shuffledDistances(n int) []float64 {
	d := make([]float64, n)
	for i, p := range newRNG(7).Perm(n) {
		d[i] = float64(p)
	}
	return d
}

func runWith(t *testing.T, ctx context.Context, distances []float64, desired int, cfg Config) Result {
	t.Helper()
	eval := selection.NewEvaluator(distances, desired)
	ops := NewOperators(eval, desired, cfg, newRNG(cfg.Seed))
	res, err := Run(ctx, len(distances), ops, cfg)
	require.NoError(t, err)
	return res
}

func TestRunFindsNearSubset(t *testing.T) {
	distances := shuffledDistances(40)
	cfg := DefaultConfig()

	res := runWith(t, context.Background(), distances, 5, cfg)

	require.Len(t, res.Best, 40)
	assert.Equal(t, 5, res.Best.Count())
	// the optimum is {0,1,2,3,4} km with mean 2
	assert.LessOrEqual(t, res.Fitness, 3.0)
	assert.NotEmpty(t, res.History)
	assert.Equal(t, res.Generations, len(res.History))
	assert.LessOrEqual(t, len(res.HallOfFame), cfg.EliteSize)
	assert.Equal(t, res.Fitness, res.HallOfFame[0].Fitness)
}

func TestRunReproducibleAcrossWorkerCounts(t *testing.T) {
	distances := shuffledDistances(60)

	cfg := DefaultConfig()
	cfg.Seed = 1234
	cfg.Workers = 1
	serial := runWith(t, context.Background(), distances, 7, cfg)

	cfg.Workers = 8
	parallel := runWith(t, context.Background(), distances, 7, cfg)

	assert.Equal(t, serial.Best, parallel.Best)
	assert.Equal(t, serial.Fitness, parallel.Fitness)
	assert.Equal(t, serial.Generations, parallel.Generations)
	assert.Equal(t, serial.History, parallel.History)
}

func TestRunDifferentSeedsMayDiffer(t *testing.T) {
	distances := shuffledDistances(60)
	cfg := DefaultConfig()
	cfg.Generations = 5

	cfg.Seed = 1
	a := runWith(t, context.Background(), distances, 7, cfg)
	cfg.Seed = 2
	b := runWith(t, context.Background(), distances, 7, cfg)

	// trajectories differ even when both land on a good subset
	assert.NotEqual(t, a.History[0], b.History[0])
}

func TestRunInterruptedReturnsHallOfFame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := runWith(t, ctx, shuffledDistances(30), 4, DefaultConfig())

	assert.Equal(t, ReasonInterrupted, res.Reason)
	assert.Equal(t, 1, res.Generations)
	assert.Equal(t, 4, res.Best.Count())
	assert.NotEmpty(t, res.HallOfFame)
}

func TestRunConvergesOnFlatLandscape(t *testing.T) {
	distances := make([]float64, 30)
	for i := range distances {
		distances[i] = 5
	}
	cfg := DefaultConfig()

	res := runWith(t, context.Background(), distances, 3, cfg)

	assert.Equal(t, ReasonConverged, res.Reason)
	assert.Equal(t, cfg.StagnationLimit+1, res.Generations)
	assert.InDelta(t, 5.0, res.Fitness, 1e-9)
	last := res.History[len(res.History)-1]
	assert.Equal(t, cfg.StagnationLimit, last.Stagnation)
}

func TestRunMaxGenerations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generations = 5
	cfg.StagnationLimit = 100

	res := runWith(t, context.Background(), shuffledDistances(25), 3, cfg)
	assert.Equal(t, ReasonMaxGenerations, res.Reason)
	assert.Equal(t, 5, res.Generations)
}

func TestRunNoCandidates(t *testing.T) {
	eval := selection.NewEvaluator(nil, 1)
	_, err := Run(context.Background(), 0, NewOperators(eval, 1, DefaultConfig(), newRNG(1)), DefaultConfig())
	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestGenerationStats(t *testing.T) {
	pop := []Individual{
		{Genes: selection.FromIndices(4, 0), Fitness: 1},
		{Genes: selection.FromIndices(4, 1), Fitness: 3},
		{Genes: selection.FromIndices(4, 0), Fitness: 5},
	}
	s := record(2, pop, 4)

	assert.Equal(t, 2, s.Generation)
	assert.Equal(t, 1.0, s.Best)
	assert.Equal(t, 5.0, s.Worst)
	assert.InDelta(t, 3.0, s.Mean, 1e-9)
	assert.InDelta(t, 1.63299, s.StdDev, 1e-4)
	// pairwise Hamming: 2, 0, 2 over 3 pairs, normalized by 4
	assert.InDelta(t, (4.0/3.0)/4.0, s.Diversity, 1e-9)
}

func TestDiversityMatchesPairwiseHamming(t *testing.T) {
	rng := newRNG(42)
	const n = 37
	pop := make([]Individual, 25)
	for i := range pop {
		genes := selection.NewVector(n)
		for j := range genes {
			genes[j] = rng.IntN(3) == 0
		}
		pop[i] = Individual{Genes: genes}
	}

	total, pairs := 0, 0
	for i := range pop {
		for j := i + 1; j < len(pop); j++ {
			total += pop[i].Genes.Hamming(pop[j].Genes)
			pairs++
		}
	}

	assert.InDelta(t, float64(total)/float64(pairs)/n, diversity(pop, n), 1e-12)
	assert.Zero(t, diversity(pop[:1], n))
	assert.Zero(t, diversity([]Individual{pop[0], {Genes: pop[0].Genes.Clone()}}, n))
}

func TestConfigNormalize(t *testing.T) {
	c := Config{PopulationSize: 3, Generations: 1000, CrossoverProb: 2, MutationProb: -1}.Normalize()

	assert.Equal(t, MinPopulation, c.PopulationSize)
	assert.Equal(t, MaxGenerations, c.Generations)
	assert.Equal(t, 1.0, c.CrossoverProb)
	assert.Equal(t, 0.0, c.MutationProb)
	assert.Equal(t, 2, c.TournamentSize)
	assert.Equal(t, 1, c.EliteSize)
	assert.Equal(t, 1, c.StagnationLimit)
	assert.Positive(t, c.Workers)
}
