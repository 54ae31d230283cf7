package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-finder/internal/selection"
)

func testOperators(distances []float64, desired int, cfg Config) *subsetOperators {
	eval := selection.NewEvaluator(distances, desired)
	return NewOperators(eval, desired, cfg, newRNG(99)).(*subsetOperators)
}

func TestInitProducesDesiredCount(t *testing.T) {
	ops := testOperators(shuffledDistances(20), 6, DefaultConfig())
	for i := 0; i < 50; i++ {
		v := ops.Init()
		require.Len(t, v, 20)
		assert.Equal(t, 6, v.Count())
	}
}

func TestInitWithoutDesiredCount(t *testing.T) {
	ops := testOperators(shuffledDistances(20), 0, DefaultConfig())
	for i := 0; i < 50; i++ {
		c := ops.Init().Count()
		assert.GreaterOrEqual(t, c, 2)
		assert.LessOrEqual(t, c, 5)
	}
}

func TestDesiredCappedAtCandidateCount(t *testing.T) {
	ops := testOperators([]float64{1, 2, 3}, 10, DefaultConfig())
	assert.Equal(t, 3, ops.Init().Count())
}

func TestCrossoverNeverEmptiesChildren(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CrossoverProb = 1
	ops := testOperators(shuffledDistances(10), 1, cfg)

	// parents with their only bit at opposite ends often produce an empty child
	a := selection.FromIndices(10, 0)
	b := selection.FromIndices(10, 9)
	for i := 0; i < 200; i++ {
		c1, c2 := ops.Crossover(a, b)
		assert.True(t, c1.Any())
		assert.True(t, c2.Any())
	}
	assert.Equal(t, selection.FromIndices(10, 0), a, "parents untouched")
}

func TestCrossoverDisabledCopiesParents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CrossoverProb = 0
	ops := testOperators(shuffledDistances(8), 2, cfg)

	a := selection.FromIndices(8, 0, 1)
	b := selection.FromIndices(8, 6, 7)
	c1, c2 := ops.Crossover(a, b)
	assert.Equal(t, a, c1)
	assert.Equal(t, b, c2)
	c1[0] = false
	assert.True(t, a[0])
}

func TestMutatePreservesCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MutationProb = 1
	ops := testOperators(shuffledDistances(30), 9, cfg)

	v := ops.Init()
	for i := 0; i < 100; i++ {
		ops.Mutate(v)
		assert.Equal(t, 9, v.Count())
	}
}

func TestRepairUsesDistanceOrder(t *testing.T) {
	distances := []float64{5, 1, 9, 3, 7}
	ops := testOperators(distances, 2, DefaultConfig())

	surplus := selection.FromIndices(5, 0, 1, 2, 3)
	ops.repair(surplus)
	assert.Equal(t, selection.FromIndices(5, 1, 3), surplus)

	deficit := selection.NewVector(5)
	ops.repair(deficit)
	assert.Equal(t, selection.FromIndices(5, 1, 3), deficit)
}

func TestSelectPrefersLowerFitness(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TournamentSize = 3
	ops := testOperators(shuffledDistances(5), 1, cfg)

	pop := []Individual{
		{Fitness: math.Inf(1)},
		{Fitness: 1},
		{Fitness: math.Inf(1)},
		{Fitness: math.Inf(1)},
	}
	wins := 0
	for i := 0; i < 1000; i++ {
		if ops.Select(pop) == 1 {
			wins++
		}
	}
	// P(index 1 in a 3-draw tournament) = 1 - (3/4)^3 ~ 0.58
	assert.Greater(t, wins, 450)
	assert.Less(t, wins, 700)

	assert.Equal(t, 0, ops.Select([]Individual{{Fitness: 2}}))
}
