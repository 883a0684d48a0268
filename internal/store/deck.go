package store

import (
	"context"

	"github.com/phrazzld/scry-live/internal/domain"
)

// DeckStore persists decks.
type DeckStore interface {
	// Create inserts deck and sets its ID.
	Create(ctx context.Context, deck *domain.Deck) error

	// ListByUser returns every deck owned by userID ordered by ID. It
	// returns an empty slice, not an error, when there are none.
	ListByUser(ctx context.Context, userID string) ([]domain.Deck, error)
}
