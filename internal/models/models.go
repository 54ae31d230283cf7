package models

import (
	"math"
	"time"
)

// Coordinates represents a geographic point in degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is finite and inside the WGS84 ranges
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m precision)
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// MarketCategory mirrors the categories stored with each market
type MarketCategory string

const (
	CategoryTraditional MarketCategory = "tradisional"
	CategoryModern      MarketCategory = "modern"
	CategoryGeneral     MarketCategory = "umum"
)

// Candidate is a geo-located entity eligible for selection. It is treated as
// immutable for the duration of one search.
type Candidate struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Category    MarketCategory `json:"category,omitempty"`
	Lat         float64        `json:"latitude"`
	Lng         float64        `json:"longitude"`
}

// GetCoords returns the coordinates of the candidate
func (c *Candidate) GetCoords() Coordinates {
	return Coordinates{Lat: c.Lat, Lng: c.Lng}
}

// Market is the persisted form of a candidate
type Market struct {
	Candidate
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RankedResult is one entry of the final, externally visible ranking
type RankedResult struct {
	CandidateID int64      `json:"candidate_id"`
	DistanceKm  float64    `json:"distance_km"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	RouteBased  bool       `json:"route_based"`
	Candidate   *Candidate `json:"candidate,omitempty"`
}
