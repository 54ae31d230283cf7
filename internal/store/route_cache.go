package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"market-finder/internal/models"
)

const routeCacheSchema = `
	CREATE TABLE IF NOT EXISTS route_distances (
		origin_lat REAL NOT NULL,
		origin_lng REAL NOT NULL,
		dest_lat REAL NOT NULL,
		dest_lng REAL NOT NULL,
		distance_km REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (origin_lat, origin_lng, dest_lat, dest_lng)
	);
`

// GetRoute returns a stored road distance. Coordinates are matched after
// rounding to 5 decimal places.
func (s *SQLiteStore) GetRoute(ctx context.Context, origin, dest models.Coordinates) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT distance_km FROM route_distances
	          WHERE origin_lat = ? AND origin_lng = ? AND dest_lat = ? AND dest_lng = ?`

	var km float64
	err := s.db.QueryRowContext(ctx, query,
		models.RoundCoordinate(origin.Lat),
		models.RoundCoordinate(origin.Lng),
		models.RoundCoordinate(dest.Lat),
		models.RoundCoordinate(dest.Lng),
	).Scan(&km)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get route distance: %w", err)
	}
	return km, true, nil
}

// PutRoute stores or replaces a road distance
func (s *SQLiteStore) PutRoute(ctx context.Context, origin, dest models.Coordinates, km float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT OR REPLACE INTO route_distances
	          (origin_lat, origin_lng, dest_lat, dest_lng, distance_km)
	          VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		models.RoundCoordinate(origin.Lat),
		models.RoundCoordinate(origin.Lng),
		models.RoundCoordinate(dest.Lat),
		models.RoundCoordinate(dest.Lng),
		km,
	)
	if err != nil {
		return fmt.Errorf("failed to set route distance: %w", err)
	}
	return nil
}

// ClearRoutes deletes every stored road distance
func (s *SQLiteStore) ClearRoutes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM route_distances"); err != nil {
		return fmt.Errorf("failed to clear route distances: %w", err)
	}
	return nil
}
