package strategy

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"market-finder/internal/logging"
	"market-finder/internal/metrics"
	"market-finder/internal/optimizer"
)

// Config controls the arbiter
type Config struct {
	// SmallThreshold is the largest candidate count answered by nearest-sort alone
	SmallThreshold  int
	ClusterRadiusKm float64
	Optimizer       optimizer.Config
	OptimizerRuns   int
}

func DefaultConfig() Config {
	return Config{
		SmallThreshold:  20,
		ClusterRadiusKm: 10,
		Optimizer:       optimizer.DefaultConfig(),
		OptimizerRuns:   1,
	}
}

// Decision reports the subset chosen by Select and how it was reached
type Decision struct {
	Strategy string
	Items    []Item
	// Fallback is true when the competing strategies were discarded in favour
	// of nearest-sort
	Fallback bool
	Reason   string
	// Qualities holds the score of every strategy that succeeded
	Qualities map[string]float64
}

const (
	ReasonSmallDataset      = "small_dataset"
	ReasonOptimizerDisabled = "optimizer_disabled"
	ReasonSelected          = "selected"
	ReasonAllFailed         = "all_strategies_failed"
	ReasonValidationFailed  = "validation_failed"
)

// Arbiter runs the competing strategies and picks one result
type Arbiter struct {
	cfg        Config
	strategies []Strategy
}

// NewArbiter builds an arbiter with the nearest, cluster, weighted and
// optimizer strategies, in that tie-break order.
func NewArbiter(cfg Config) *Arbiter {
	return NewArbiterWith(cfg,
		Nearest{},
		Cluster{RadiusKm: cfg.ClusterRadiusKm},
		Weighted{},
		Optimizer{Config: cfg.Optimizer, Runs: cfg.OptimizerRuns},
	)
}

// NewArbiterWith builds an arbiter with an explicit strategy list. Earlier
// strategies win quality ties.
func NewArbiterWith(cfg Config, strategies ...Strategy) *Arbiter {
	if cfg.SmallThreshold < 0 {
		cfg.SmallThreshold = 0
	}
	return &Arbiter{cfg: cfg, strategies: strategies}
}

// Quality scores a result as mean + 0.1 * population stddev of its
// distances; lower is better.
func Quality(items []Item) float64 {
	if len(items) == 0 {
		return math.Inf(1)
	}
	d := make([]float64, len(items))
	for i, it := range items {
		d[i] = it.DistanceKm
	}
	if len(d) == 1 {
		return d[0]
	}
	mean, std := stat.PopMeanStdDev(d, nil)
	return mean + 0.1*std
}

// Select returns the chosen subset. It never fails while at least one
// candidate exists: every problem ends in the nearest-sort.
func (a *Arbiter) Select(ctx context.Context, in Input) Decision {
	n := len(in.Candidates)
	if n == 0 || in.K() == 0 {
		return Decision{Strategy: NameNearest, Reason: ReasonSmallDataset}
	}
	if n <= a.cfg.SmallThreshold {
		return a.nearestDecision(in, ReasonSmallDataset, false)
	}
	if !in.UseOptimizer {
		return a.nearestDecision(in, ReasonOptimizerDisabled, false)
	}

	outcomes := a.runAll(ctx, in)

	qualities := make(map[string]float64, len(outcomes))
	winner := -1
	bestQ := math.Inf(1)
	for i, o := range outcomes {
		if o.Err != nil {
			metrics.StrategyFailures.WithLabelValues(o.Name).Inc()
			logging.Warn().Err(o.Err).Str("strategy", o.Name).Msg("[ARBITER] Strategy failed")
			continue
		}
		q := Quality(o.Items)
		qualities[o.Name] = q
		logging.Debug().Str("strategy", o.Name).Int("items", len(o.Items)).Float64("quality", q).Msg("[ARBITER] Strategy scored")
		if winner < 0 || q < bestQ {
			winner, bestQ = i, q
		}
	}

	if winner < 0 {
		d := a.nearestDecision(in, ReasonAllFailed, true)
		d.Qualities = qualities
		return d
	}

	chosen := outcomes[winner]
	if err := Validate(chosen.Items, in.Desired, n); err != nil {
		logging.Warn().Err(err).Str("strategy", chosen.Name).Msg("[ARBITER] Result failed validation, falling back to nearest-sort")
		d := a.nearestDecision(in, ReasonValidationFailed+":"+validationLabel(err), true)
		d.Qualities = qualities
		return d
	}

	metrics.StrategySelections.WithLabelValues(chosen.Name).Inc()
	logging.Info().Str("strategy", chosen.Name).Int("items", len(chosen.Items)).Float64("quality", bestQ).Msg("[ARBITER] Selected strategy")

	return Decision{
		Strategy:  chosen.Name,
		Items:     chosen.Items,
		Reason:    ReasonSelected,
		Qualities: qualities,
	}
}

// runAll executes every strategy concurrently. A strategy that errors or
// panics yields an Outcome with Err set; the others are unaffected.
func (a *Arbiter) runAll(ctx context.Context, in Input) []Outcome {
	outcomes := make([]Outcome, len(a.strategies))

	var g errgroup.Group
	for i, s := range a.strategies {
		g.Go(func() error {
			outcomes[i] = runSafely(ctx, s, in)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func runSafely(ctx context.Context, s Strategy, in Input) (out Outcome) {
	out.Name = s.Name()
	defer func() {
		if r := recover(); r != nil {
			out.Items = nil
			out.Err = fmt.Errorf("strategy %s panicked: %v", out.Name, r)
		}
	}()
	out.Items, out.Err = s.Run(ctx, in)
	return out
}

func (a *Arbiter) nearestDecision(in Input, reason string, fallback bool) Decision {
	if fallback {
		metrics.Fallbacks.WithLabelValues(reason).Inc()
	}
	metrics.StrategySelections.WithLabelValues(NameNearest).Inc()
	return Decision{
		Strategy: NameNearest,
		Items:    nearest(in),
		Fallback: fallback,
		Reason:   reason,
	}
}
