package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Search metrics
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_finder_search_duration_seconds",
			Help:    "Duration of nearest-market searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_finder_searches_total",
			Help: "Total number of searches by outcome",
		},
		[]string{"outcome"}, // "ok", "invalid", "empty"
	)

	// Arbiter metrics
	StrategySelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_finder_strategy_selections_total",
			Help: "Total number of times each strategy won arbitration",
		},
		[]string{"strategy"},
	)

	StrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_finder_strategy_failures_total",
			Help: "Total number of strategy runs that returned an error or panicked",
		},
		[]string{"strategy"},
	)

	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_finder_fallbacks_total",
			Help: "Total number of nearest-sort fallbacks by reason",
		},
		[]string{"reason"},
	)

	// Optimizer metrics
	OptimizerGenerations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_finder_optimizer_generations",
			Help:    "Generations run per optimizer invocation",
			Buckets: []float64{5, 10, 20, 30, 50, 75, 100, 150, 200},
		},
		[]string{"reason"},
	)

	OptimizerBestFitness = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "market_finder_optimizer_best_fitness",
			Help:    "Best fitness reached per optimizer invocation",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
		},
	)

	// Distance metrics
	MemoHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_finder_distance_memo_hits_total",
			Help: "Total number of haversine memo hits",
		},
	)

	MemoMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_finder_distance_memo_misses_total",
			Help: "Total number of haversine memo misses",
		},
	)

	RouteLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_finder_route_lookups_total",
			Help: "Total number of route-distance lookups by result",
		},
		[]string{"result"}, // "ok", "cached", "stored", "absent", "rejected"
	)

	RouteTravelTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "market_finder_route_travel_time_seconds",
			Help:    "Driving time reported by the route service for resolved routes",
			Buckets: []float64{60, 300, 600, 1200, 1800, 3600, 7200},
		},
	)

	RouteLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "market_finder_route_lookup_duration_seconds",
			Help:    "Duration of route-distance HTTP calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "market_finder_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_finder_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_finder_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordSearch observes one completed search
func RecordSearch(strategy string, duration time.Duration) {
	SearchDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	SearchesTotal.WithLabelValues("ok").Inc()
}

// RecordOptimizerRun observes one finished optimizer run
func RecordOptimizerRun(reason string, generations int, best float64) {
	OptimizerGenerations.WithLabelValues(reason).Observe(float64(generations))
	OptimizerBestFitness.Observe(best)
}

// RecordAPIRequest observes one HTTP request
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
