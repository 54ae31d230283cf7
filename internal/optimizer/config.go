package optimizer

import "runtime"

// Config holds optimizer parameters for one run. It is passed explicitly to
// Run; nothing is registered globally.
type Config struct {
	// PopulationSize is clamped to [10, 500]
	PopulationSize int
	// Generations is clamped to [5, 200]
	Generations int
	// CrossoverProb is the chance a parent pair is recombined
	CrossoverProb float64
	// MutationProb is the chance an offspring receives swap moves
	MutationProb   float64
	TournamentSize int
	// EliteSize bounds the hall of fame and the individuals carried over unchanged
	EliteSize int
	// StagnationLimit is the number of generations without an improvement
	// greater than Epsilon before the run is declared converged
	StagnationLimit int
	Epsilon         float64
	// Workers bounds parallel evaluation; 0 means GOMAXPROCS
	Workers int
	Seed    uint64
}

const (
	MinPopulation  = 10
	MaxPopulation  = 500
	MinGenerations = 5
	MaxGenerations = 200
)

// DefaultConfig returns the standard parameters
func DefaultConfig() Config {
	return Config{
		PopulationSize:  60,
		Generations:     50,
		CrossoverProb:   0.7,
		MutationProb:    0.2,
		TournamentSize:  3,
		EliteSize:       5,
		StagnationLimit: 10,
		Epsilon:         0.001,
		Workers:         0,
		Seed:            42,
	}
}

// Normalize returns a copy with every field clamped to its working range
func (c Config) Normalize() Config {
	c.PopulationSize = clamp(c.PopulationSize, MinPopulation, MaxPopulation)
	c.Generations = clamp(c.Generations, MinGenerations, MaxGenerations)
	c.CrossoverProb = clampf(c.CrossoverProb, 0, 1)
	c.MutationProb = clampf(c.MutationProb, 0, 1)
	c.TournamentSize = clamp(c.TournamentSize, 2, c.PopulationSize)
	c.EliteSize = clamp(c.EliteSize, 1, c.PopulationSize/2)
	if c.StagnationLimit < 1 {
		c.StagnationLimit = 1
	}
	if c.Epsilon < 0 {
		c.Epsilon = 0
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf(v, lo, hi float64) float64 {
	if v < lo || v != v {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
