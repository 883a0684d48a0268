package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/store"
)

// PostgresSettingsStore implements store.SettingsStore.
type PostgresSettingsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.SettingsStore = (*PostgresSettingsStore)(nil)

// NewSettingsStore creates a PostgresSettingsStore on a connection or transaction.
// If logger is nil, a default logger will be used.
func NewSettingsStore(db store.DBTX, logger *slog.Logger) *PostgresSettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSettingsStore{db: db, logger: logger.With(slog.String("component", "settings_store"))}
}

// Get implements store.SettingsStore.
func (s *PostgresSettingsStore) Get(ctx context.Context, userID string) (domain.Settings, error) {
	var out domain.Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT max_cards_per_session, desired_retention FROM user_settings WHERE user_id = $1`,
		userID).Scan(&out.MaxCardsPerSession, &out.DesiredRetention)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Settings{}, store.ErrSettingsNotFound
		}
		return domain.Settings{}, store.NewStoreError("settings", "get", "query failed", MapError(err))
	}
	return out, nil
}

// Upsert implements store.SettingsStore.
func (s *PostgresSettingsStore) Upsert(ctx context.Context, userID string, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, max_cards_per_session, desired_retention, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			max_cards_per_session = EXCLUDED.max_cards_per_session,
			desired_retention = EXCLUDED.desired_retention,
			updated_at = NOW()`,
		userID, settings.MaxCardsPerSession, settings.DesiredRetention)
	if err != nil {
		s.logger.Error("failed to save settings", slog.String("error", err.Error()))
		return store.NewStoreError("settings", "upsert", "write failed", MapError(err))
	}
	return nil
}
