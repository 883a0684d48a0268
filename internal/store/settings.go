package store

import (
	"context"

	"github.com/phrazzld/scry-live/internal/domain"
)

// SettingsStore persists per-identity review settings.
type SettingsStore interface {
	// Get returns the saved settings. Returns ErrSettingsNotFound when none
	// were saved yet.
	Get(ctx context.Context, userID string) (domain.Settings, error)

	// Upsert validates and saves settings, replacing any previous values.
	Upsert(ctx context.Context, userID string, settings domain.Settings) error
}

// Stores bundles the three stores of one database.
type Stores struct {
	Decks      DeckStore
	Flashcards FlashcardStore
	Settings   SettingsStore
}
