package testutil

import (
	"fmt"
	"math"
	"math/rand/v2"

	"market-finder/internal/models"
)

// kmPerDegree is the length of one degree of latitude
const kmPerDegree = 111.19

// Jakarta is the default search centre used across tests
var Jakarta = models.Coordinates{Lat: -6.2088, Lng: 106.8456}

// Offset returns the point dNorthKm north and dEastKm east of c
func Offset(c models.Coordinates, dNorthKm, dEastKm float64) models.Coordinates {
	lat := c.Lat + dNorthKm/kmPerDegree
	lng := c.Lng + dEastKm/(kmPerDegree*math.Cos(c.Lat*math.Pi/180))
	return models.Coordinates{Lat: lat, Lng: lng}
}

// Candidate builds a candidate at p with a generated name
func Candidate(id int64, p models.Coordinates) models.Candidate {
	return models.Candidate{
		ID:       id,
		Name:     fmt.Sprintf("Pasar %d", id),
		Category: models.CategoryTraditional,
		Lat:      p.Lat,
		Lng:      p.Lng,
	}
}

// Line returns n candidates due north of center, stepKm apart, the first one
// stepKm away. IDs start at 1 and grow with distance.
func Line(center models.Coordinates, n int, stepKm float64) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = Candidate(int64(i+1), Offset(center, float64(i+1)*stepKm, 0))
	}
	return out
}

// Scatter returns n candidates uniformly placed within radiusKm of center.
// The same seed always yields the same set.
func Scatter(center models.Coordinates, n int, radiusKm float64, seed uint64) []models.Candidate {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]models.Candidate, n)
	for i := range out {
		r := radiusKm * math.Sqrt(rng.Float64())
		theta := 2 * math.Pi * rng.Float64()
		c := Candidate(int64(i+1), Offset(center, r*math.Cos(theta), r*math.Sin(theta)))
		if i%3 == 0 {
			c.Name = fmt.Sprintf("Pasar Tradisional Nomor %d", i+1)
			c.Description = "Pasar tradisional dengan ratusan kios sayur dan ikan"
		}
		out[i] = c
	}
	return out
}
