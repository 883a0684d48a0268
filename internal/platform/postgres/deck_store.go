package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/store"
)

// PostgresDeckStore implements store.DeckStore.
type PostgresDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.DeckStore = (*PostgresDeckStore)(nil)

// NewDeckStore creates a PostgresDeckStore on a connection or transaction.
// If logger is nil, a default logger will be used.
func NewDeckStore(db store.DBTX, logger *slog.Logger) *PostgresDeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDeckStore{db: db, logger: logger.With(slog.String("component", "deck_store"))}
}

// Create implements store.DeckStore.
func (s *PostgresDeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	if strings.TrimSpace(deck.Name) == "" || deck.UserID == "" {
		return fmt.Errorf("%w: deck needs a name and an owner", store.ErrInvalidEntity)
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO deck (name, user_id) VALUES ($1, $2) RETURNING id`,
		deck.Name, deck.UserID).Scan(&deck.ID)
	if err != nil {
		s.logger.Error("failed to insert deck", slog.String("error", err.Error()))
		return store.NewStoreError("deck", "create", "insert failed", MapError(err))
	}
	return nil
}

// ListByUser implements store.DeckStore.
func (s *PostgresDeckStore) ListByUser(ctx context.Context, userID string) ([]domain.Deck, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_id FROM deck WHERE user_id = $1 ORDER BY id`,
		userID)
	if err != nil {
		return nil, store.NewStoreError("deck", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	decks := []domain.Deck{}
	for rows.Next() {
		var d domain.Deck
		if err := rows.Scan(&d.ID, &d.Name, &d.UserID); err != nil {
			return nil, store.NewStoreError("deck", "list", "scan failed", err)
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("deck", "list", "iterate failed", err)
	}
	return decks, nil
}
