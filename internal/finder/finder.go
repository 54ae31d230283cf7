// Package finder is the entry point of the engine: it validates a search,
// snapshots the candidates, lets the strategy arbiter choose a subset and
// ranks it.
package finder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"

	"market-finder/internal/distance"
	"market-finder/internal/logging"
	"market-finder/internal/metrics"
	"market-finder/internal/models"
	"market-finder/internal/ranking"
	"market-finder/internal/store"
	"market-finder/internal/strategy"
)

// ErrInvalidInput is matched by every InvalidInputError
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError describes which argument was rejected
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

const (
	DefaultMaxResults    = 50
	DefaultSearchTimeout = 5 * time.Second
)

// Config controls a Finder
type Config struct {
	Arbiter          strategy.Config
	RouteConcurrency int
	RouteTimeout     time.Duration
	// MaxResults is the largest accepted desired count
	MaxResults int
	// SearchTimeout bounds one search on top of the caller's context
	SearchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Arbiter:          strategy.DefaultConfig(),
		RouteConcurrency: ranking.DefaultConcurrency,
		RouteTimeout:     ranking.DefaultTimeout,
		MaxResults:       DefaultMaxResults,
		SearchTimeout:    DefaultSearchTimeout,
	}
}

// Query is one search request
type Query struct {
	Target       models.Coordinates
	Desired      int
	UseOptimizer bool
}

// Result is a finished search with the details the HTTP layer reports
type Result struct {
	SearchID string
	Results  []models.RankedResult
	// Strategy is the name of the strategy whose subset was ranked
	Strategy string
	Reason   string
	Fallback bool
	// Candidates is the number of valid candidates considered
	Candidates int
	Duration   time.Duration
}

// Finder runs searches. It holds no per-search state and is safe for
// concurrent use.
type Finder struct {
	cfg     Config
	arbiter *strategy.Arbiter
	ranker  *ranking.Ranker
}

// New creates a Finder. route may be nil to rank by haversine only.
func New(cfg Config, route distance.RouteDistancer) *Finder {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = DefaultSearchTimeout
	}
	ranker := ranking.New(route)
	if cfg.RouteConcurrency > 0 {
		ranker.Concurrency = cfg.RouteConcurrency
	}
	if cfg.RouteTimeout > 0 {
		ranker.Timeout = cfg.RouteTimeout
	}
	return &Finder{
		cfg:     cfg,
		arbiter: strategy.NewArbiter(cfg.Arbiter),
		ranker:  ranker,
	}
}

// FindNearest returns up to desiredCount candidates nearest to target,
// ascending by distance. The only error is ErrInvalidInput.
func (f *Finder) FindNearest(ctx context.Context, target models.Coordinates, candidates []models.Candidate, desiredCount int, useOptimizer bool) ([]models.RankedResult, error) {
	res, err := f.Search(ctx, Query{Target: target, Desired: desiredCount, UseOptimizer: useOptimizer}, candidates)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// FindNearestFromSource snapshots the active candidates of src and searches them
func (f *Finder) FindNearestFromSource(ctx context.Context, src store.CandidateSource, q Query) (*Result, error) {
	if err := f.validate(q); err != nil {
		return nil, err
	}
	candidates, err := src.ActiveCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	return f.Search(ctx, q, candidates)
}

// Search is FindNearest with the decision details attached
func (f *Finder) Search(ctx context.Context, q Query, candidates []models.Candidate) (*Result, error) {
	if err := f.validate(q); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	start := time.Now()
	searchID := uuid.New().String()
	log := logging.With().Str("search_id", searchID).Logger()

	valid, invalid, duplicate := usable(candidates)
	if invalid > 0 {
		log.Warn().Int("dropped", invalid).Msg("Ignoring candidates with invalid coordinates")
	}
	if duplicate > 0 {
		log.Warn().Int("dropped", duplicate).Msg("Ignoring candidates with duplicate IDs")
	}

	res := &Result{
		SearchID:   searchID,
		Results:    []models.RankedResult{},
		Strategy:   strategy.NameNearest,
		Candidates: len(valid),
	}
	if len(valid) == 0 {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		res.Duration = time.Since(start)
		return res, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.SearchTimeout)
	defer cancel()

	memo := distance.NewMemo(distance.MemoCapacityFor(len(valid)))
	in := strategy.Input{
		Target:       q.Target,
		Candidates:   valid,
		Distances:    distance.FromTarget(memo, q.Target, valid),
		Desired:      q.Desired,
		UseOptimizer: q.UseOptimizer,
		Seed:         DeriveSeed(q.Target),
		Memo:         memo,
	}

	decision := f.arbiter.Select(ctx, in)
	res.Results = f.ranker.Rank(ctx, q.Target, decision.Items, in.K())
	res.Strategy = decision.Strategy
	res.Reason = decision.Reason
	res.Fallback = decision.Fallback
	res.Duration = time.Since(start)

	metrics.RecordSearch(decision.Strategy, res.Duration)
	hits, misses := memo.Stats()
	log.Info().
		Float64("lat", q.Target.Lat).
		Float64("lng", q.Target.Lng).
		Int("candidates", len(valid)).
		Int("desired", q.Desired).
		Int("returned", len(res.Results)).
		Str("strategy", decision.Strategy).
		Str("reason", decision.Reason).
		Bool("fallback", decision.Fallback).
		Int64("memo_hits", hits).
		Int64("memo_misses", misses).
		Dur("duration", res.Duration).
		Msg("Search completed")

	return res, nil
}

func (f *Finder) validate(q Query) error {
	if !q.Target.Valid() {
		return &InvalidInputError{Field: "target", Reason: "coordinates must be finite with latitude in [-90,90] and longitude in [-180,180]"}
	}
	if q.Desired <= 0 {
		return &InvalidInputError{Field: "desired_count", Reason: "must be positive"}
	}
	if q.Desired > f.cfg.MaxResults {
		return &InvalidInputError{Field: "desired_count", Reason: fmt.Sprintf("must not exceed %d", f.cfg.MaxResults)}
	}
	return nil
}

// usable drops candidates with invalid coordinates and repeated IDs. The
// first occurrence of an ID wins.
func usable(candidates []models.Candidate) (out []models.Candidate, invalid, duplicate int) {
	out = make([]models.Candidate, 0, len(candidates))
	seen := make(map[int64]struct{}, len(candidates))
	for i := range candidates {
		if !candidates[i].GetCoords().Valid() {
			invalid++
			continue
		}
		if _, ok := seen[candidates[i].ID]; ok {
			duplicate++
			continue
		}
		seen[candidates[i].ID] = struct{}{}
		out = append(out, candidates[i])
	}
	return out, invalid, duplicate
}

// DeriveSeed maps a target to the optimizer seed. Equal targets (to 5
// decimal places) always give the same seed.
func DeriveSeed(target models.Coordinates) uint64 {
	lat := models.RoundCoordinate(target.Lat)
	lng := models.RoundCoordinate(target.Lng)
	base := int(math.Abs(lat*1000+lng*1000)) % 10000

	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(base))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(lat))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(lng))
	h.Write(buf[:])
	return h.Sum64()
}
