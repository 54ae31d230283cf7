package store

import (
	"context"

	"market-finder/internal/models"
)

// StaticSource serves a fixed in-memory candidate list
type StaticSource struct {
	candidates []models.Candidate
}

// NewStaticSource copies candidates so later changes by the caller are not seen
func NewStaticSource(candidates []models.Candidate) *StaticSource {
	cp := make([]models.Candidate, len(candidates))
	copy(cp, candidates)
	return &StaticSource{candidates: cp}
}

func (s *StaticSource) ActiveCandidates(ctx context.Context) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp := make([]models.Candidate, len(s.candidates))
	copy(cp, s.candidates)
	return cp, nil
}

// DemoSource serves the bundled demo markets
func DemoSource() *StaticSource {
	markets := DemoMarkets()
	candidates := make([]models.Candidate, len(markets))
	for i, m := range markets {
		candidates[i] = m.Candidate
		candidates[i].ID = int64(i + 1)
	}
	return &StaticSource{candidates: candidates}
}
