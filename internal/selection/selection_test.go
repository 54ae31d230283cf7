package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorBasics(t *testing.T) {
	v := FromIndices(6, 1, 4)

	assert.Equal(t, 2, v.Count())
	assert.True(t, v.Any())
	assert.Equal(t, []int{1, 4}, v.Indices())
	assert.False(t, NewVector(3).Any())

	c := v.Clone()
	c[0] = true
	assert.False(t, v[0], "clone must not alias")
	assert.Equal(t, 1, v.Hamming(c))
	assert.True(t, v.Equal(FromIndices(6, 4, 1)))
	assert.False(t, v.Equal(FromIndices(5, 1, 4)))
}

func TestEvaluate(t *testing.T) {
	e := &Evaluator{
		Distances:     []float64{1, 2, 3, 10},
		Desired:       2,
		PenaltyWeight: 100,
	}

	tests := []struct {
		name string
		v    Vector
		want float64
	}{
		{"exact count uses mean of all selected", FromIndices(4, 0, 2), 2},
		{"one too many", FromIndices(4, 0, 1, 2), 2 + 100},
		{"one too few", FromIndices(4, 3), 10 + 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.Evaluate(tt.v), 1e-9)
		})
	}
}

func TestEvaluateEmptyIsInfinite(t *testing.T) {
	e := NewEvaluator([]float64{1, 2}, 1)
	assert.True(t, math.IsInf(e.Evaluate(NewVector(2)), 1))
}

func TestEvaluateNoDesiredCount(t *testing.T) {
	e := &Evaluator{Distances: []float64{4, 6}, PenaltyWeight: 1000}
	assert.InDelta(t, 5.0, e.Evaluate(FromIndices(2, 0, 1)), 1e-9)
}

func TestCountViolationDominates(t *testing.T) {
	distances := make([]float64, 40)
	for i := range distances {
		distances[i] = float64(i) * 0.7
	}
	e := NewEvaluator(distances, 5)

	exactButFar := FromIndices(40, 35, 36, 37, 38, 39)
	nearButShort := FromIndices(40, 0, 1, 2, 3)
	assert.Less(t, e.Evaluate(exactButFar), e.Evaluate(nearButShort))
}

func TestDefaultPenaltyWeight(t *testing.T) {
	assert.Equal(t, MinPenaltyWeight, DefaultPenaltyWeight(nil))
	assert.Equal(t, MinPenaltyWeight, DefaultPenaltyWeight([]float64{5, 5, 5}))

	// median gap of 10 km gives 500
	w := DefaultPenaltyWeight([]float64{0, 10, 20, 30})
	require.InDelta(t, 500, w, 1e-9)
}
