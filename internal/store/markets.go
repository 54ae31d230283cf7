package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"market-finder/internal/models"
)

// ActiveCandidates returns every active market with non-NULL coordinates, by id
func (s *SQLiteStore) ActiveCandidates(ctx context.Context) ([]models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, COALESCE(description, ''), location, latitude, longitude, category
	          FROM markets
	          WHERE is_active = 1 AND latitude IS NOT NULL AND longitude IS NOT NULL
	          ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query markets: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		var category string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Location, &c.Lat, &c.Lng, &category); err != nil {
			return nil, fmt.Errorf("failed to scan market: %w", err)
		}
		c.Category = models.MarketCategory(category)
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating markets: %w", err)
	}

	return candidates, nil
}

// Insert stores a market and returns it with its new ID. Zero coordinates
// are stored as given; use InsertWithoutLocation for markets lacking them.
func (s *SQLiteStore) Insert(ctx context.Context, m *models.Market) (*models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := insertMarket(ctx, s.db, m, true); err != nil {
		return nil, err
	}
	return m, nil
}

// InsertWithoutLocation stores a market whose coordinates are unknown
func (s *SQLiteStore) InsertWithoutLocation(ctx context.Context, m *models.Market) (*models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := insertMarket(ctx, s.db, m, false); err != nil {
		return nil, err
	}
	return m, nil
}

// Seed inserts markets in one transaction
func (s *SQLiteStore) Seed(ctx context.Context, markets []models.Market) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range markets {
		if err := insertMarket(ctx, tx, &markets[i], true); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	return len(markets), nil
}

// Count returns the total number of markets, active or not
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markets").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count markets: %w", err)
	}
	return n, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMarket(ctx context.Context, db execer, m *models.Market, withLocation bool) error {
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Category == "" {
		m.Category = models.CategoryGeneral
	}

	var lat, lng sql.NullFloat64
	if withLocation {
		lat = sql.NullFloat64{Float64: m.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: m.Lng, Valid: true}
	}

	query := `INSERT INTO markets (name, description, location, latitude, longitude, category, is_active, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := db.ExecContext(ctx, query,
		m.Name, m.Description, m.Location, lat, lng, string(m.Category), m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert market %q: %w", m.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	m.ID = id
	return nil
}
