package store

import (
	"context"
	"time"

	"github.com/phrazzld/scry-live/internal/domain"
)

// FlashcardStore persists flashcards. Every read and write that takes a
// userID only touches cards whose deck that identity owns.
type FlashcardStore interface {
	// Create validates card, inserts it and sets its ID.
	// Returns ErrInvalidEntity when validation fails and ErrDeckNotFound
	// when the deck does not exist.
	Create(ctx context.Context, card *domain.Flashcard) error

	// GetForUser returns one card. Returns ErrNotFoundOrUnauthorized when
	// the card is missing or belongs to another identity.
	GetForUser(ctx context.Context, id int64, userID string) (*domain.Flashcard, error)

	// ListDue returns at most limit cards owned by userID that are due at
	// now: never scheduled, or scheduled at or before now. Cards that were
	// never scheduled come last; ties are broken by ID.
	ListDue(ctx context.Context, userID string, now time.Time, limit int) ([]domain.DueCard, error)

	// UpdateReview stores the outcome of one rating. Returns
	// ErrNotFoundOrUnauthorized when no card owned by userID has that ID.
	UpdateReview(ctx context.Context, userID string, update domain.ReviewUpdate) error
}
