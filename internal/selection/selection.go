// Package selection holds the boolean subset encoding searched by the
// optimizer and the fitness function that scores it.
package selection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Vector marks which candidates are included. It is index-aligned with the
// candidate slice of one search and its length never changes during a run.
type Vector []bool

// NewVector returns an all-false vector of length n
func NewVector(n int) Vector {
	return make(Vector, n)
}

// FromIndices builds a vector of length n with the given indices set
func FromIndices(n int, indices ...int) Vector {
	v := NewVector(n)
	for _, i := range indices {
		v[i] = true
	}
	return v
}

// Count returns the number of selected candidates
func (v Vector) Count() int {
	n := 0
	for _, b := range v {
		if b {
			n++
		}
	}
	return n
}

// Any reports whether at least one candidate is selected
func (v Vector) Any() bool {
	for _, b := range v {
		if b {
			return true
		}
	}
	return false
}

// Indices returns the selected positions in ascending order
func (v Vector) Indices() []int {
	out := make([]int, 0, v.Count())
	for i, b := range v {
		if b {
			out = append(out, i)
		}
	}
	return out
}

func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Hamming returns the number of positions where v and other differ.
// Vectors of different length are compared over the shorter one.
func (v Vector) Hamming(other Vector) int {
	n := min(len(v), len(other))
	d := 0
	for i := 0; i < n; i++ {
		if v[i] != other[i] {
			d++
		}
	}
	return d
}

// Equal reports whether both vectors select the same positions
func (v Vector) Equal(other Vector) bool {
	return len(v) == len(other) && v.Hamming(other) == 0
}

// Evaluator scores vectors against a fixed snapshot of target distances.
// It holds no mutable state and may be shared by concurrent goroutines.
type Evaluator struct {
	// Distances[i] is the target-to-candidate i distance in km
	Distances []float64
	// Desired is the target selection size; zero disables the count penalty
	Desired       int
	PenaltyWeight float64
}

// NewEvaluator builds an evaluator with DefaultPenaltyWeight
func NewEvaluator(distances []float64, desired int) *Evaluator {
	return &Evaluator{
		Distances:     distances,
		Desired:       desired,
		PenaltyWeight: DefaultPenaltyWeight(distances),
	}
}

// Evaluate returns the mean distance over all selected candidates plus the
// count-deviation penalty. Lower is better; an empty selection is +Inf.
func (e *Evaluator) Evaluate(v Vector) float64 {
	sum := 0.0
	count := 0
	for i, b := range v {
		if b {
			sum += e.Distances[i]
			count++
		}
	}
	if count == 0 {
		return math.Inf(1)
	}

	fitness := sum / float64(count)
	if e.Desired > 0 {
		diff := count - e.Desired
		if diff < 0 {
			diff = -diff
		}
		fitness += float64(diff) * e.PenaltyWeight
	}
	return fitness
}

// MinPenaltyWeight is the floor applied by DefaultPenaltyWeight
const MinPenaltyWeight = 100.0

// DefaultPenaltyWeight returns 50x the median gap between consecutive sorted
// target distances, never less than MinPenaltyWeight km.
func DefaultPenaltyWeight(distances []float64) float64 {
	if len(distances) < 2 {
		return MinPenaltyWeight
	}
	sorted := make([]float64, len(distances))
	copy(sorted, distances)
	sort.Float64s(sorted)

	deltas := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d) {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return MinPenaltyWeight
	}
	sort.Float64s(deltas)

	w := 50 * stat.Quantile(0.5, stat.Empirical, deltas, nil)
	return math.Max(w, MinPenaltyWeight)
}
