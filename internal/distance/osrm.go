package distance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"market-finder/internal/logging"
	"market-finder/internal/metrics"
	"market-finder/internal/models"
)

// DistanceResult contains the result of a route lookup
type DistanceResult struct {
	DistanceMeters float64
	DurationSecs   float64
}

// RouteDistancer resolves road distance between two points. ok is false when
// the distance is unavailable for any reason; callers fall back to Haversine.
type RouteDistancer interface {
	RouteDistance(ctx context.Context, origin, dest models.Coordinates) (km float64, ok bool)
}

// RouteStore persists road distances across restarts
type RouteStore interface {
	GetRoute(ctx context.Context, origin, dest models.Coordinates) (km float64, found bool, err error)
	PutRoute(ctx context.Context, origin, dest models.Coordinates, km float64) error
}

// NoRoute is a RouteDistancer that never has a route
type NoRoute struct{}

func (NoRoute) RouteDistance(context.Context, models.Coordinates, models.Coordinates) (float64, bool) {
	return 0, false
}

// ErrDistanceCalculationFailed is returned when the OSRM API fails
type ErrDistanceCalculationFailed struct {
	Origin models.Coordinates
	Dest   models.Coordinates
	Reason string
}

func (e *ErrDistanceCalculationFailed) Error() string {
	return fmt.Sprintf("distance calculation failed: %s", e.Reason)
}

// OSRMConfig configures an OSRMClient
type OSRMConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      float64
	Burst          int
	CacheTTL       time.Duration
	BreakerTimeout time.Duration
}

// DefaultOSRMConfig returns the public demo server with conservative limits
func DefaultOSRMConfig() OSRMConfig {
	return OSRMConfig{
		BaseURL:        "https://router.project-osrm.org",
		Timeout:        3 * time.Second,
		RateLimit:      10,
		Burst:          10,
		CacheTTL:       time.Hour,
		BreakerTimeout: 30 * time.Second,
	}
}

const osrmBreakerName = "osrm-route"

// OSRMClient looks up single driving routes. Requests are rate limited,
// guarded by a circuit breaker and never retried; successes are cached.
type OSRMClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*DistanceResult]
	cache      *cache.Cache
	persist    RouteStore
}

type osrmRouteResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// NewOSRMClient creates a route client from cfg, filling zero values from DefaultOSRMConfig
func NewOSRMClient(cfg OSRMConfig) *OSRMClient {
	def := DefaultOSRMConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(osrmBreakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[*DistanceResult](gobreaker.Settings{
		Name:        osrmBreakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("[OSRM] Opening circuit")
				return true
			}
			return false
		},
		// a caller giving up is not a service failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("[OSRM] Circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &OSRMClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		breaker:    breaker,
		cache:      cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

// WithStore makes the client consult and fill s behind its in-memory cache
func (c *OSRMClient) WithStore(s RouteStore) *OSRMClient {
	c.persist = s
	return c
}

// RouteDistance returns the driving distance in kilometers
func (c *OSRMClient) RouteDistance(ctx context.Context, origin, dest models.Coordinates) (float64, bool) {
	// Round to 5 decimal places (~1m precision) to match cache key rounding
	if models.RoundCoordinate(origin.Lat) == models.RoundCoordinate(dest.Lat) &&
		models.RoundCoordinate(origin.Lng) == models.RoundCoordinate(dest.Lng) {
		return 0, true
	}

	key := cacheKey(origin, dest)
	if v, found := c.cache.Get(key); found {
		metrics.RouteLookups.WithLabelValues("cached").Inc()
		return v.(float64), true
	}

	if c.persist != nil {
		km, found, err := c.persist.GetRoute(ctx, origin, dest)
		if err != nil {
			logging.Warn().Err(err).Msg("[OSRM] Route store lookup failed")
		} else if found {
			c.cache.SetDefault(key, km)
			metrics.RouteLookups.WithLabelValues("stored").Inc()
			return km, true
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RouteLookups.WithLabelValues("absent").Inc()
		logging.Debug().Err(err).Msg("[OSRM] Rate limiter wait aborted")
		return 0, false
	}

	res, err := c.breaker.Execute(func() (*DistanceResult, error) {
		return c.fetchRoute(ctx, origin, dest)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RouteLookups.WithLabelValues("rejected").Inc()
			logging.Debug().Err(err).Msg("[OSRM] Request rejected by circuit breaker")
		} else {
			metrics.RouteLookups.WithLabelValues("absent").Inc()
			logging.Warn().Err(err).
				Float64("origin_lat", origin.Lat).Float64("origin_lng", origin.Lng).
				Float64("dest_lat", dest.Lat).Float64("dest_lng", dest.Lng).
				Msg("[OSRM] Route lookup failed")
		}
		return 0, false
	}

	km := res.DistanceMeters / 1000
	metrics.RouteTravelTime.Observe(res.DurationSecs)
	c.cache.SetDefault(key, km)
	if c.persist != nil {
		if err := c.persist.PutRoute(ctx, origin, dest, km); err != nil {
			logging.Warn().Err(err).Msg("[OSRM] Failed to persist route distance")
		}
	}
	metrics.RouteLookups.WithLabelValues("ok").Inc()
	return km, true
}

func (c *OSRMClient) fetchRoute(ctx context.Context, origin, dest models.Coordinates) (*DistanceResult, error) {
	start := time.Now()
	defer func() { metrics.RouteLookupDuration.Observe(time.Since(start).Seconds()) }()

	queryURL := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false",
		c.baseURL, origin.Lng, origin.Lat, dest.Lng, dest.Lat)

	fail := func(reason string) error {
		return &ErrDistanceCalculationFailed{Origin: origin, Dest: dest, Reason: reason}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fail(err.Error())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fail(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fail(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)))
	}

	var osrmResp osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		return nil, fail(err.Error())
	}

	if osrmResp.Code != "Ok" {
		return nil, fail(fmt.Sprintf("OSRM error: %s", osrmResp.Code))
	}
	if len(osrmResp.Routes) == 0 {
		return nil, fail("no routes returned")
	}

	route := osrmResp.Routes[0]
	if math.IsNaN(route.Distance) || math.IsInf(route.Distance, 0) || route.Distance < 0 {
		return nil, fail(fmt.Sprintf("invalid distance %v", route.Distance))
	}

	logging.Debug().Float64("distance_m", route.Distance).Float64("duration_s", route.Duration).Msg("[OSRM] Route calculated")
	return &DistanceResult{DistanceMeters: route.Distance, DurationSecs: route.Duration}, nil
}

func cacheKey(origin, dest models.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f",
		models.RoundCoordinate(origin.Lat), models.RoundCoordinate(origin.Lng),
		models.RoundCoordinate(dest.Lat), models.RoundCoordinate(dest.Lng))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
