package strategy

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyResult   = errors.New("result is empty")
	ErrTooFewItems   = errors.New("result has too few items")
	ErrNotSorted     = errors.New("result is not sorted by distance")
	ErrBadDistance   = errors.New("result has a negative or non-finite distance")
	ErrDuplicateItem = errors.New("result has a duplicate candidate")
)

// Validate checks a strategy result for a search asking for desired items
// out of n candidates.
func Validate(items []Item, desired, n int) error {
	if len(items) == 0 {
		return ErrEmptyResult
	}
	if want := min(desired, n); len(items) < want {
		return fmt.Errorf("%w: got %d, want %d", ErrTooFewItems, len(items), want)
	}

	seen := make(map[int64]struct{}, len(items))
	for i, it := range items {
		d := it.DistanceKm
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return fmt.Errorf("%w: %v at position %d", ErrBadDistance, d, i)
		}
		if i > 0 && d < items[i-1].DistanceKm {
			return fmt.Errorf("%w: position %d", ErrNotSorted, i)
		}
		if _, dup := seen[it.Candidate.ID]; dup {
			return fmt.Errorf("%w: id %d", ErrDuplicateItem, it.Candidate.ID)
		}
		seen[it.Candidate.ID] = struct{}{}
	}
	return nil
}

// validationLabel maps a validation error to a short metric label
func validationLabel(err error) string {
	switch {
	case errors.Is(err, ErrEmptyResult):
		return "empty"
	case errors.Is(err, ErrTooFewItems):
		return "too_few"
	case errors.Is(err, ErrNotSorted):
		return "unsorted"
	case errors.Is(err, ErrBadDistance):
		return "bad_distance"
	case errors.Is(err, ErrDuplicateItem):
		return "duplicate"
	default:
		return "invalid"
	}
}
