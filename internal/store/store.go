package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"market-finder/internal/logging"
	"market-finder/internal/models"
)

const (
	DefaultDBFileName = "markets.db"
	schemaVersion     = 2
)

// CandidateSource supplies the candidate snapshot for one search
type CandidateSource interface {
	// ActiveCandidates returns active markets that have both coordinates
	ActiveCandidates(ctx context.Context) ([]models.Candidate, error)
}

// SQLiteStore is a SQLite-backed CandidateSource
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (or creates) the SQLite database at dbPath
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logging.Info().Str("path", dbPath).Msg("Opening SQLite database")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -16000", // 16MB cache
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// DBPath returns the database file path
func (s *SQLiteStore) DBPath() string {
	return s.dbPath
}

func (s *SQLiteStore) initSchema() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist, create everything
		return s.createSchema()
	}

	if version < schemaVersion {
		return s.runMigrations(version)
	}
	return nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT INTO schema_version (version) VALUES (2);

	CREATE TABLE IF NOT EXISTS markets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		location TEXT NOT NULL,
		latitude REAL,
		longitude REAL,
		category TEXT NOT NULL DEFAULT 'umum'
			CHECK (category IN ('tradisional', 'modern', 'umum')),
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_markets_active ON markets(is_active);
	` + routeCacheSchema

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Info().Int("version", schemaVersion).Msg("SQLite schema initialized")
	return nil
}

func (s *SQLiteStore) runMigrations(fromVersion int) error {
	logging.Info().Int("from", fromVersion).Int("to", schemaVersion).Msg("Migrating SQLite schema")

	// v2: persistent route distances
	if fromVersion < 2 {
		if _, err := s.db.Exec(routeCacheSchema); err != nil {
			return fmt.Errorf("failed to create route_distances: %w", err)
		}
	}

	_, err := s.db.Exec("UPDATE schema_version SET version = ?", schemaVersion)
	return err
}

// Close checkpoints the WAL and closes the database
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
