package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-finder/internal/distance"
	"market-finder/internal/models"
	"market-finder/internal/optimizer"
	"market-finder/internal/testutil"
)

func buildInput(target models.Coordinates, candidates []models.Candidate, k int, useOptimizer bool) Input {
	memo := distance.NewMemo(distance.MemoCapacityFor(len(candidates)))
	return Input{
		Target:       target,
		Candidates:   candidates,
		Distances:    distance.FromTarget(memo, target, candidates),
		Desired:      k,
		UseOptimizer: useOptimizer,
		Seed:         42,
		Memo:         memo,
	}
}

func ids(items []Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.Candidate.ID
	}
	return out
}

func TestNearest(t *testing.T) {
	c := testutil.Jakarta
	candidates := []models.Candidate{
		testutil.Candidate(1, testutil.Offset(c, 3, 0)),
		testutil.Candidate(2, testutil.Offset(c, 1, 0)),
		testutil.Candidate(3, testutil.Offset(c, 2, 0)),
		testutil.Candidate(4, testutil.Offset(c, 1, 0)),
	}

	items, err := Nearest{}.Run(context.Background(), buildInput(c, candidates, 3, true))
	require.NoError(t, err)
	// equal distances keep input order
	assert.Equal(t, []int64{2, 4, 3}, ids(items))
}

func TestNearestKLargerThanCandidates(t *testing.T) {
	in := buildInput(testutil.Jakarta, testutil.Line(testutil.Jakarta, 3, 1), 10, true)
	items, err := Nearest{}.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestClusterPrefersLocalGroup(t *testing.T) {
	c := testutil.Jakarta
	candidates := []models.Candidate{
		testutil.Candidate(1, testutil.Offset(c, 5, 0)),
		testutil.Candidate(2, testutil.Offset(c, -6, 0)),
		testutil.Candidate(3, testutil.Offset(c, 7, 0)),
	}

	items, err := Cluster{RadiusKm: 10}.Run(context.Background(), buildInput(c, candidates, 2, true))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(items))
}

func TestClusterBackfillsFromNearest(t *testing.T) {
	c := testutil.Jakarta
	candidates := []models.Candidate{
		testutil.Candidate(1, testutil.Offset(c, 1, 0)),
		testutil.Candidate(2, testutil.Offset(c, -15, 0)),
		testutil.Candidate(3, testutil.Offset(c, -20, 0)),
	}

	items, err := Cluster{RadiusKm: 10}.Run(context.Background(), buildInput(c, candidates, 2, true))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(items))
}

func TestWeightedFavoursRicherMetadata(t *testing.T) {
	c := testutil.Jakarta
	plain := testutil.Candidate(1, testutil.Offset(c, 10, 0))
	rich := testutil.Candidate(2, testutil.Offset(c, 10.4, 0))
	rich.Name = "Pasar Induk Kramat Jati"

	items, err := Weighted{}.Run(context.Background(), buildInput(c, []models.Candidate{plain, rich}, 1, true))
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(items))
}

func TestWeightedScore(t *testing.T) {
	short := models.Candidate{Name: "Pasar"}
	long := models.Candidate{Name: "Pasar Minggu Raya", Description: "Pasar tradisional dengan banyak kios"}

	assert.Equal(t, 10.0, WeightedScore(short, 10))
	assert.InDelta(t, 10*0.95*0.98, WeightedScore(long, 10), 1e-9)
}

func TestOptimizerStrategy(t *testing.T) {
	candidates := testutil.Scatter(testutil.Jakarta, 40, 25, 3)
	cfg := optimizer.DefaultConfig()
	cfg.Generations = 20

	in := buildInput(testutil.Jakarta, candidates, 5, true)
	items, err := Optimizer{Config: cfg, Runs: 2}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.NoError(t, Validate(items, 5, len(candidates)))
}

func TestOptimizerStrategyReproducible(t *testing.T) {
	candidates := testutil.Scatter(testutil.Jakarta, 35, 25, 9)
	cfg := optimizer.DefaultConfig()
	in := buildInput(testutil.Jakarta, candidates, 4, true)

	a, err := Optimizer{Config: cfg}.Run(context.Background(), in)
	require.NoError(t, err)
	b, err := Optimizer{Config: cfg}.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, ids(a), ids(b))
}

func TestQuality(t *testing.T) {
	assert.InDelta(t, 2.1, Quality([]Item{{DistanceKm: 1}, {DistanceKm: 3}}), 1e-9)
	assert.Equal(t, 4.0, Quality([]Item{{DistanceKm: 4}}))
	assert.True(t, Quality(nil) > 1e300)
}

func TestValidate(t *testing.T) {
	item := func(id int64, d float64) Item {
		return Item{Candidate: models.Candidate{ID: id}, DistanceKm: d}
	}

	tests := []struct {
		name    string
		items   []Item
		desired int
		n       int
		wantErr error
	}{
		{"ok", []Item{item(1, 1), item(2, 2)}, 2, 5, nil},
		{"ok when fewer candidates than desired", []Item{item(1, 1)}, 5, 1, nil},
		{"empty", nil, 2, 5, ErrEmptyResult},
		{"too few", []Item{item(1, 1)}, 2, 5, ErrTooFewItems},
		{"unsorted", []Item{item(1, 2), item(2, 1)}, 2, 5, ErrNotSorted},
		{"negative", []Item{item(1, -1)}, 1, 5, ErrBadDistance},
		{"duplicate", []Item{item(1, 1), item(1, 2)}, 2, 5, ErrDuplicateItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.items, tt.desired, tt.n)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
