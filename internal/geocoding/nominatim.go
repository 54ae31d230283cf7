package geocoding

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"market-finder/internal/logging"
	"market-finder/internal/models"
)

// GeocodingResult contains the result of a geocoding operation
type GeocodingResult struct {
	Coords      models.Coordinates
	DisplayName string
}

// Geocoder provides address-to-coordinates conversion
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodingResult, error)
	Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error)
}

// ErrGeocodingFailed is returned when an address cannot be geocoded
type ErrGeocodingFailed struct {
	Address string
	Reason  string
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("geocoding failed for address: %s - %s", e.Address, e.Reason)
}

// Config configures the Nominatim client
type Config struct {
	BaseURL string
	// CountryCodes restricts results, e.g. "id"; empty searches worldwide
	CountryCodes string
	Timeout      time.Duration
	// RateLimit is requests per second; the public server allows 1
	RateLimit float64
}

func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://nominatim.openstreetmap.org",
		CountryCodes: "id",
		Timeout:      10 * time.Second,
		RateLimit:    1,
	}
}

const userAgent = "market-finder/1.0"

type nominatimGeocoder struct {
	baseURL      string
	countryCodes string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder creates a new Nominatim geocoder with rate limiting
func NewNominatimGeocoder(cfg Config) Geocoder {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	return &nominatimGeocoder{
		baseURL:      cfg.BaseURL,
		countryCodes: cfg.CountryCodes,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

func (g *nominatimGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	results, err := g.search(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		logging.Warn().Str("address", address).Msg("[GEOCODING] No results found")
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "invalid latitude"}
	}
	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "invalid longitude"}
	}
	coords := models.Coordinates{Lat: lat, Lng: lng}
	if !coords.Valid() {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "coordinates out of range"}
	}

	logging.Debug().Str("address", address).Float64("lat", lat).Float64("lng", lng).Str("display_name", result.DisplayName).Msg("[GEOCODING] Resolved")
	return &GeocodingResult{
		Coords:      coords,
		DisplayName: result.DisplayName,
	}, nil
}

// Search returns up to limit matches, skipping entries with unparsable or
// out-of-range coordinates
func (g *nominatimGeocoder) Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error) {
	results, err := g.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]GeocodingResult, 0, len(results))
	for _, result := range results {
		lat, err := strconv.ParseFloat(result.Lat, 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(result.Lon, 64)
		if err != nil {
			continue
		}
		coords := models.Coordinates{Lat: lat, Lng: lng}
		if !coords.Valid() {
			continue
		}
		out = append(out, GeocodingResult{
			Coords:      coords,
			DisplayName: result.DisplayName,
		})
	}
	return out, nil
}

func (g *nominatimGeocoder) search(ctx context.Context, query string, limit int) ([]nominatimResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	if g.countryCodes != "" {
		params.Set("countrycodes", g.countryCodes)
	}
	queryURL := g.baseURL + "/search?" + params.Encode()
	logging.Debug().Str("query", query).Str("url", queryURL).Msg("[GEOCODING] Request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		logging.Error().Err(err).Str("query", query).Msg("[GEOCODING] Request failed")
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logging.Error().Int("status", resp.StatusCode).Str("query", query).Msg("[GEOCODING] API error")
		return nil, &ErrGeocodingFailed{
			Address: query,
			Reason:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	return results, nil
}
