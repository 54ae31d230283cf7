package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"market-finder/internal/finder"
	"market-finder/internal/models"
	"market-finder/internal/strategy"
)

const (
	defaultLimit = 5
	// maxBodyBytes bounds the nearby request body
	maxBodyBytes = 64 << 10
)

const (
	AlgorithmGenetic = "genetic_algorithm"
	AlgorithmSimple  = "simple_distance"
)

// NearbyRequest is the body of POST /api/markets/nearby. Pointers tell a
// missing field apart from a zero value.
type NearbyRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Limit     *int     `json:"limit" validate:"omitempty,min=1,max=50"`
	UseGA     *bool    `json:"use_ga"`
}

// MarketResult is one market in the response with its distance
type MarketResult struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Location    string                `json:"location"`
	Category    models.MarketCategory `json:"category"`
	Latitude    float64               `json:"latitude"`
	Longitude   float64               `json:"longitude"`
	DistanceKm  float64               `json:"distance_km"`
	RouteBased  bool                  `json:"route_based"`
}

// SearchLocation echoes the requested target
type SearchLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NearbyMeta describes how a search was answered
type NearbyMeta struct {
	SearchLocation SearchLocation `json:"search_location"`
	AlgorithmUsed  string         `json:"algorithm_used"`
	Strategy       string         `json:"strategy"`
	Fallback       bool           `json:"fallback"`
	TotalFound     int            `json:"total_found"`
	SearchID       string         `json:"search_id"`
	DurationMs     int64          `json:"duration_ms"`
}

// HandleNearby handles POST /api/markets/nearby
func (h *Handler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				fmt.Sprintf("Request body must not exceed %d bytes", tooLarge.Limit), nil)
			return
		}
		h.handleBadRequest(w, "Failed to read request body")
		return
	}

	var req NearbyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.handleBadRequest(w, "Request body must be a JSON object")
		return
	}

	if err := validate.Struct(req); err != nil {
		h.handleValidationError(w, "Invalid request", fieldErrors(err))
		return
	}

	limit := defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	useGA := true
	if req.UseGA != nil {
		useGA = *req.UseGA
	}

	q := finder.Query{
		Target:       models.Coordinates{Lat: *req.Latitude, Lng: *req.Longitude},
		Desired:      limit,
		UseOptimizer: useGA,
	}

	res, err := h.Finder.FindNearestFromSource(r.Context(), h.Source, q)
	if err != nil {
		var inv *finder.InvalidInputError
		if errors.As(err, &inv) {
			h.handleValidationError(w, inv.Error(), []FieldError{{Field: inv.Field, Rule: inv.Reason}})
			return
		}
		h.handleInternalError(w, "Failed to find nearby markets", err)
		return
	}

	data := make([]MarketResult, 0, len(res.Results))
	for _, rr := range res.Results {
		m := MarketResult{
			ID:         rr.CandidateID,
			Latitude:   rr.Latitude,
			Longitude:  rr.Longitude,
			DistanceKm: rr.DistanceKm,
			RouteBased: rr.RouteBased,
		}
		if c := rr.Candidate; c != nil {
			m.Name = c.Name
			m.Description = c.Description
			m.Location = c.Location
			m.Category = c.Category
		}
		data = append(data, m)
	}

	h.writeSuccess(w, fmt.Sprintf("Found %d nearby markets", len(data)), data, NearbyMeta{
		SearchLocation: SearchLocation{Latitude: q.Target.Lat, Longitude: q.Target.Lng},
		AlgorithmUsed:  algorithmUsed(res),
		Strategy:       res.Strategy,
		Fallback:       res.Fallback,
		TotalFound:     len(data),
		SearchID:       res.SearchID,
		DurationMs:     res.Duration.Milliseconds(),
	})
}

// algorithmUsed reports genetic_algorithm whenever the competing strategies
// ran, even if nearest-sort won. A use_ga request over a small dataset is
// answered by nearest-sort alone and reports simple_distance.
func algorithmUsed(res *finder.Result) string {
	switch res.Reason {
	case "", strategy.ReasonSmallDataset, strategy.ReasonOptimizerDisabled:
		return AlgorithmSimple
	default:
		return AlgorithmGenetic
	}
}
