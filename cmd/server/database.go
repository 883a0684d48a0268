package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-live/internal/config"
	"github.com/phrazzld/scry-live/internal/platform/migrations"
	"github.com/phrazzld/scry-live/internal/platform/postgres"
	"github.com/phrazzld/scry-live/internal/platform/sqlite"
	"github.com/phrazzld/scry-live/internal/store"
)

// openDatabase connects to the configured database.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case migrations.DriverPostgres:
		db, err = postgres.Open(ctx, cfg.URL)
	case migrations.DriverSQLite:
		db, err = sqlite.Open(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

// newStores returns the stores for the configured driver.
func newStores(driver string, db *sql.DB, logger *slog.Logger) store.Stores {
	if driver == migrations.DriverSQLite {
		return sqlite.NewStores(db, logger)
	}
	return postgres.NewStores(db, logger)
}
