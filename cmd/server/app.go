package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-live/internal/auth"
	"github.com/phrazzld/scry-live/internal/config"
	"github.com/phrazzld/scry-live/internal/platform/migrations"
	"github.com/phrazzld/scry-live/internal/session"
	"github.com/phrazzld/scry-live/internal/store"
)

// application holds the shared dependencies of the server and releases
// them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	db       *sql.DB
	stores   store.Stores
	verifier *auth.Verifier
	sessions *session.Manager
}

// newApplication opens the database and wires the session manager and
// token verifier. When migrate is set the schema is brought up to date
// first.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*application, error) {
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established", "driver", cfg.Database.Driver)

	if migrate {
		m, err := migrations.New(cfg.Database.Driver, db, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := m.Up(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	verifier, err := auth.NewVerifierFromConfig(cfg.App, cfg.Auth, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to build token verifier: %w", err)
	}

	stores := newStores(cfg.Database.Driver, db, logger)
	return &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		stores:   stores,
		verifier: verifier,
		sessions: session.NewManager(cfg, stores, logger),
	}, nil
}

// cleanup closes every live session and then the database.
func (app *application) cleanup(ctx context.Context) {
	app.sessions.Shutdown(ctx)
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
		return
	}
	app.logger.Info("database connection closed")
}
