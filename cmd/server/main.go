package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-finder/internal/config"
	"market-finder/internal/finder"
	"market-finder/internal/logging"
	"market-finder/internal/server"
	"market-finder/internal/store"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Fatal error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	if err := seedIfEmpty(db); err != nil {
		return err
	}
	logging.Info().Str("path", db.DBPath()).Msg("Market store ready")

	f := finder.NewFromConfig(cfg, db)
	if cfg.OSRM.Enabled {
		logging.Info().Str("base_url", cfg.OSRM.BaseURL).Msg("Route distance refinement enabled")
	}

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Arbiter.Timeout + cfg.OSRM.Timeout,
	}, f, db)

	actualAddr, err := srv.Start()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logging.Info().Str("addr", actualAddr).Msg("Listening")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	logging.Info().Str("signal", sig.String()).Msg("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}

	logging.Info().Msg("Server stopped")
	return nil
}

// seedIfEmpty loads the demo markets into a fresh database
func seedIfEmpty(db *store.SQLiteStore) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := db.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	seeded, err := db.Seed(ctx, store.DemoMarkets())
	if err != nil {
		return fmt.Errorf("failed to seed demo markets: %w", err)
	}
	logging.Info().Int("markets", seeded).Msg("Seeded demo markets")
	return nil
}
