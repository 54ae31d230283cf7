package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-finder/internal/testutil"
)

type funcStrategy struct {
	name string
	fn   func(ctx context.Context, in Input) ([]Item, error)
}

func (f funcStrategy) Name() string { return f.name }

func (f funcStrategy) Run(ctx context.Context, in Input) ([]Item, error) {
	return f.fn(ctx, in)
}

// fixed returns the given candidate indices at the given distances
func fixed(name string, picks map[int]float64, order ...int) funcStrategy {
	return funcStrategy{name: name, fn: func(_ context.Context, in Input) ([]Item, error) {
		items := make([]Item, 0, len(order))
		for _, i := range order {
			items = append(items, Item{Candidate: in.Candidates[i], DistanceKm: picks[i]})
		}
		return items, nil
	}}
}

func largeInput(useOptimizer bool) Input {
	return buildInput(testutil.Jakarta, testutil.Scatter(testutil.Jakarta, 30, 20, 5), 3, useOptimizer)
}

func TestSelectSmallDatasetUsesNearest(t *testing.T) {
	called := false
	spy := funcStrategy{name: "spy", fn: func(context.Context, Input) ([]Item, error) {
		called = true
		return nil, nil
	}}
	a := NewArbiterWith(DefaultConfig(), spy)

	in := buildInput(testutil.Jakarta, testutil.Line(testutil.Jakarta, 20, 1), 5, true)
	d := a.Select(context.Background(), in)

	assert.False(t, called)
	assert.Equal(t, NameNearest, d.Strategy)
	assert.Equal(t, ReasonSmallDataset, d.Reason)
	assert.False(t, d.Fallback)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(d.Items))
}

func TestSelectOptimizerDisabled(t *testing.T) {
	d := NewArbiter(DefaultConfig()).Select(context.Background(), largeInput(false))
	assert.Equal(t, NameNearest, d.Strategy)
	assert.Equal(t, ReasonOptimizerDisabled, d.Reason)
	assert.Len(t, d.Items, 3)
}

func TestSelectEmpty(t *testing.T) {
	d := NewArbiter(DefaultConfig()).Select(context.Background(), buildInput(testutil.Jakarta, nil, 5, true))
	assert.Empty(t, d.Items)
}

func TestSelectLowestQualityWins(t *testing.T) {
	in := largeInput(true)
	a := NewArbiterWith(DefaultConfig(),
		fixed("wide", map[int]float64{0: 1, 1: 2, 2: 30}, 0, 1, 2),
		fixed("tight", map[int]float64{3: 2, 4: 3, 5: 4}, 3, 4, 5),
	)

	d := a.Select(context.Background(), in)
	assert.Equal(t, "tight", d.Strategy)
	assert.Equal(t, ReasonSelected, d.Reason)
	assert.Contains(t, d.Qualities, "wide")
	assert.Less(t, d.Qualities["tight"], d.Qualities["wide"])
}

func TestSelectTieGoesToEarlierStrategy(t *testing.T) {
	in := largeInput(true)
	a := NewArbiterWith(DefaultConfig(),
		fixed("first", map[int]float64{0: 1, 1: 2, 2: 3}, 0, 1, 2),
		fixed("second", map[int]float64{3: 1, 4: 2, 5: 3}, 3, 4, 5),
	)
	d := a.Select(context.Background(), in)
	assert.Equal(t, "first", d.Strategy)
}

func TestSelectRecoversPanic(t *testing.T) {
	in := largeInput(true)
	boom := funcStrategy{name: "boom", fn: func(context.Context, Input) ([]Item, error) {
		panic("index out of range")
	}}
	a := NewArbiterWith(DefaultConfig(), boom, Nearest{})

	d := a.Select(context.Background(), in)
	assert.Equal(t, NameNearest, d.Strategy)
	assert.False(t, d.Fallback)
	assert.NotContains(t, d.Qualities, "boom")
}

func TestSelectAllFailFallsBack(t *testing.T) {
	in := largeInput(true)
	failing := funcStrategy{name: "failing", fn: func(context.Context, Input) ([]Item, error) {
		return nil, errors.New("no luck")
	}}
	d := NewArbiterWith(DefaultConfig(), failing).Select(context.Background(), in)

	assert.True(t, d.Fallback)
	assert.Equal(t, ReasonAllFailed, d.Reason)
	assert.Len(t, d.Items, 3)
}

func TestSelectInvalidWinnerFallsBack(t *testing.T) {
	in := largeInput(true)
	tests := []struct {
		name   string
		s      Strategy
		reason string
	}{
		{"unsorted", fixed("bad", map[int]float64{0: 0.002, 1: 0.001, 2: 0.003}, 0, 1, 2), "validation_failed:unsorted"},
		{"duplicate", fixed("bad", map[int]float64{0: 0.001}, 0, 0, 0), "validation_failed:duplicate"},
		{"too few", fixed("bad", map[int]float64{0: 0.001}, 0), "validation_failed:too_few"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewArbiterWith(DefaultConfig(), tt.s, Nearest{}).Select(context.Background(), in)
			assert.True(t, d.Fallback)
			assert.Equal(t, NameNearest, d.Strategy)
			assert.Equal(t, tt.reason, d.Reason)
			require.NoError(t, Validate(d.Items, 3, len(in.Candidates)))
		})
	}
}

func TestSelectDefaultStrategiesProduceValidResult(t *testing.T) {
	candidates := testutil.Scatter(testutil.Jakarta, 60, 30, 11)
	in := buildInput(testutil.Jakarta, candidates, 5, true)

	d := NewArbiter(DefaultConfig()).Select(context.Background(), in)

	require.Len(t, d.Items, 5)
	assert.NoError(t, Validate(d.Items, 5, len(candidates)))
	assert.Contains(t, []string{NameNearest, NameCluster, NameWeighted, NameOptimizer}, d.Strategy)
	assert.Contains(t, d.Qualities, NameNearest)

	// never worse than nearest-sort
	assert.LessOrEqual(t, Quality(d.Items), d.Qualities[NameNearest])
}

func TestSelectDeterministic(t *testing.T) {
	candidates := testutil.Scatter(testutil.Jakarta, 50, 30, 4)
	a := NewArbiter(DefaultConfig())

	first := a.Select(context.Background(), buildInput(testutil.Jakarta, candidates, 5, true))
	second := a.Select(context.Background(), buildInput(testutil.Jakarta, candidates, 5, true))
	assert.Equal(t, ids(first.Items), ids(second.Items))
	assert.Equal(t, first.Strategy, second.Strategy)
}
