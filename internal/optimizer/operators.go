package optimizer

import (
	"math/rand/v2"
	"sort"

	"market-finder/internal/selection"
)

const crossoverAttempts = 5

// Operators are the per-run variation and scoring steps. Evaluate must be
// pure: Run calls it from several goroutines at once. The remaining methods
// are only called from the run loop and may consume randomness.
type Operators interface {
	// Init builds one random starting vector
	Init() selection.Vector
	Evaluate(v selection.Vector) float64
	// Select returns the index of the chosen parent in pop
	Select(pop []Individual) int
	// Crossover returns two children; parents are never modified
	Crossover(a, b selection.Vector) (selection.Vector, selection.Vector)
	// Mutate perturbs v in place and restores the desired count
	Mutate(v selection.Vector)
}

// subsetOperators searches fixed-size subsets of n candidates
type subsetOperators struct {
	eval    *selection.Evaluator
	n       int
	desired int
	cfg     Config
	rng     *rand.Rand

	// byDistance lists candidate indices nearest first; used by repair
	byDistance []int
}

// NewOperators builds the standard subset operators around eval. desired is
// capped at the number of candidates; zero lets Init pick a count in [2, 5].
func NewOperators(eval *selection.Evaluator, desired int, cfg Config, rng *rand.Rand) Operators {
	n := len(eval.Distances)
	if desired > n {
		desired = n
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return eval.Distances[order[a]] < eval.Distances[order[b]]
	})

	return &subsetOperators{
		eval:       eval,
		n:          n,
		desired:    desired,
		cfg:        cfg.Normalize(),
		rng:        rng,
		byDistance: order,
	}
}

func (o *subsetOperators) Init() selection.Vector {
	count := o.desired
	if count == 0 {
		hi := min(5, o.n)
		lo := min(2, hi)
		count = lo + o.rng.IntN(hi-lo+1)
	}
	v := selection.NewVector(o.n)
	for _, i := range o.rng.Perm(o.n)[:count] {
		v[i] = true
	}
	return v
}

func (o *subsetOperators) Evaluate(v selection.Vector) float64 {
	return o.eval.Evaluate(v)
}

// Select runs a tournament with replacement. Lower fitness wins; equal
// fitness keeps the contestant at the lower position.
func (o *subsetOperators) Select(pop []Individual) int {
	best := o.rng.IntN(len(pop))
	for k := 1; k < o.cfg.TournamentSize; k++ {
		c := o.rng.IntN(len(pop))
		if pop[c].Fitness < pop[best].Fitness ||
			(pop[c].Fitness == pop[best].Fitness && c < best) {
			best = c
		}
	}
	return best
}

// Crossover cuts both parents at one random point. Pairs that would produce
// an empty child are retried, then returned as copies.
func (o *subsetOperators) Crossover(a, b selection.Vector) (selection.Vector, selection.Vector) {
	if o.n < 2 || o.rng.Float64() >= o.cfg.CrossoverProb {
		return a.Clone(), b.Clone()
	}

	for attempt := 0; attempt < crossoverAttempts; attempt++ {
		point := 1 + o.rng.IntN(o.n-1)

		c1 := make(selection.Vector, o.n)
		c2 := make(selection.Vector, o.n)
		copy(c1, a[:point])
		copy(c1[point:], b[point:])
		copy(c2, b[:point])
		copy(c2[point:], a[point:])

		if c1.Any() && c2.Any() {
			return c1, c2
		}
	}
	return a.Clone(), b.Clone()
}

// Mutate moves selected bits to unselected positions so the count is kept,
// then repairs any drift left by crossover.
func (o *subsetOperators) Mutate(v selection.Vector) {
	if o.rng.Float64() < o.cfg.MutationProb {
		moves := 1 + o.rng.IntN(max(1, o.desired/3))
		for m := 0; m < moves; m++ {
			o.swap(v)
		}
	}
	o.repair(v)
}

func (o *subsetOperators) swap(v selection.Vector) {
	var on, off []int
	for i, b := range v {
		if b {
			on = append(on, i)
		} else {
			off = append(off, i)
		}
	}
	if len(on) == 0 || len(off) == 0 {
		return
	}
	v[on[o.rng.IntN(len(on))]] = false
	v[off[o.rng.IntN(len(off))]] = true
}

// repair forces the exact desired count: surplus drops the farthest selected
// candidates, a deficit adds the nearest unselected ones.
func (o *subsetOperators) repair(v selection.Vector) {
	if o.desired == 0 {
		if !v.Any() && o.n > 0 {
			v[o.byDistance[0]] = true
		}
		return
	}

	count := v.Count()
	for i := len(o.byDistance) - 1; i >= 0 && count > o.desired; i-- {
		if idx := o.byDistance[i]; v[idx] {
			v[idx] = false
			count--
		}
	}
	for i := 0; i < len(o.byDistance) && count < o.desired; i++ {
		if idx := o.byDistance[i]; !v[idx] {
			v[idx] = true
			count++
		}
	}
}
