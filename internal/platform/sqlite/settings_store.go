package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/store"
)

// SettingsStore implements store.SettingsStore.
type SettingsStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

var _ store.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates a SettingsStore on db, which may be a *sql.DB or *sql.Tx.
func NewSettingsStore(db store.DBTX, logger *slog.Logger) *SettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{db: db, logger: logger.With("component", "settings_store"), now: time.Now}
}

// Get implements store.SettingsStore.
func (s *SettingsStore) Get(ctx context.Context, userID string) (domain.Settings, error) {
	var out domain.Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT max_cards_per_session, desired_retention FROM user_settings WHERE user_id = ?`,
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
func (s *SettingsStore) Upsert(ctx context.Context, userID string, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, max_cards_per_session, desired_retention, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			max_cards_per_session = excluded.max_cards_per_session,
			desired_retention = excluded.desired_retention,
			updated_at = excluded.updated_at`,
		userID, settings.MaxCardsPerSession, settings.DesiredRetention, formatTime(s.now()))
	if err != nil {
		s.logger.Error("failed to save settings", "error", err)
		return store.NewStoreError("settings", "upsert", "write failed", MapError(err))
	}
	return nil
}
