package optimizer

import (
	"math"
	"sort"

	"market-finder/internal/selection"
)

// Individual is one member of a population
type Individual struct {
	Genes   selection.Vector
	Fitness float64
	// Seq is the discovery order within a run; lower was seen first
	Seq int

	evaluated bool
}

// HallOfFame keeps the best individuals seen across a run, at most one per
// distinct fitness value, ordered by fitness then discovery.
type HallOfFame struct {
	capacity int
	members  []Individual
}

func NewHallOfFame(capacity int) *HallOfFame {
	if capacity < 1 {
		capacity = 1
	}
	return &HallOfFame{capacity: capacity}
}

// Update offers every evaluated individual of pop. Non-finite fitness is ignored.
func (h *HallOfFame) Update(pop []Individual) {
	for i := range pop {
		ind := pop[i]
		if math.IsInf(ind.Fitness, 0) || math.IsNaN(ind.Fitness) {
			continue
		}
		h.offer(ind)
	}
}

func (h *HallOfFame) offer(ind Individual) {
	pos := -1
	for i, m := range h.members {
		if m.Fitness == ind.Fitness {
			if ind.Seq < m.Seq {
				h.members[i] = clone(ind)
			}
			return
		}
		if pos < 0 && ind.Fitness < m.Fitness {
			pos = i
		}
	}

	if pos < 0 {
		if len(h.members) >= h.capacity {
			return
		}
		h.members = append(h.members, clone(ind))
		return
	}

	h.members = append(h.members, Individual{})
	copy(h.members[pos+1:], h.members[pos:])
	h.members[pos] = clone(ind)
	if len(h.members) > h.capacity {
		h.members = h.members[:h.capacity]
	}
}

// Best returns the lowest-fitness member
func (h *HallOfFame) Best() (Individual, bool) {
	if len(h.members) == 0 {
		return Individual{}, false
	}
	return h.members[0], true
}

func (h *HallOfFame) Len() int {
	return len(h.members)
}

// Members returns copies ordered best first
func (h *HallOfFame) Members() []Individual {
	out := make([]Individual, len(h.members))
	for i, m := range h.members {
		out[i] = clone(m)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Fitness != out[b].Fitness {
			return out[a].Fitness < out[b].Fitness
		}
		return out[a].Seq < out[b].Seq
	})
	return out
}

func clone(ind Individual) Individual {
	ind.Genes = ind.Genes.Clone()
	return ind
}
