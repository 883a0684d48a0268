package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/store"
)

// DeckStore implements store.DeckStore.
type DeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.DeckStore = (*DeckStore)(nil)

// NewDeckStore creates a DeckStore on db, which may be a *sql.DB or *sql.Tx.
func NewDeckStore(db store.DBTX, logger *slog.Logger) *DeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckStore{db: db, logger: logger.With("component", "deck_store")}
}

// Create implements store.DeckStore.
func (s *DeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	if strings.TrimSpace(deck.Name) == "" || deck.UserID == "" {
		return fmt.Errorf("%w: deck needs a name and an owner", store.ErrInvalidEntity)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO deck (name, user_id) VALUES (?, ?)`,
		deck.Name, deck.UserID)
	if err != nil {
		s.logger.Error("failed to insert deck", "error", err)
		return store.NewStoreError("deck", "create", "insert failed", MapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.NewStoreError("deck", "create", "read id", err)
	}
	deck.ID = id
	return nil
}

// ListByUser implements store.DeckStore.
func (s *DeckStore) ListByUser(ctx context.Context, userID string) ([]domain.Deck, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_id FROM deck WHERE user_id = ? ORDER BY id`,
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
