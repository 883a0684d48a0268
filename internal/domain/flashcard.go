package domain

import (
	"fmt"
	"time"
)

// MemoryState is the memory model's per-card state. It only exists once a
// card has been reviewed.
type MemoryState struct {
	Stability  float64 `json:"stability"`
	Difficulty float64 `json:"difficulty"`
}

// Flashcard is a single front/back card together with its review history.
type Flashcard struct {
	ID             int64      `json:"id"`
	DeckID         int64      `json:"deck_id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	LastRating     *Rating    `json:"last_rating,omitempty"`
	LastReviewed   *time.Time `json:"last_reviewed,omitempty"`
	LastScheduled  *time.Time `json:"last_scheduled,omitempty"`
	LastStability  *float64   `json:"last_stability,omitempty"`
	LastDifficulty *float64   `json:"last_difficulty,omitempty"`
}

// Reviewed reports whether the card has been rated at least once.
func (f *Flashcard) Reviewed() bool {
	return f.LastReviewed != nil
}

// Memory returns the stored memory state. It returns (nil, nil) for a card
// that was never reviewed and ErrModelState when a reviewed card lacks
// either half of its state.
func (f *Flashcard) Memory() (*MemoryState, error) {
	if !f.Reviewed() {
		return nil, nil
	}
	if f.LastStability == nil || f.LastDifficulty == nil {
		return nil, fmt.Errorf("%w: card %d reviewed without stability/difficulty", ErrModelState, f.ID)
	}
	return &MemoryState{Stability: *f.LastStability, Difficulty: *f.LastDifficulty}, nil
}

// IsDue reports whether the card should be presented at now.
func (f *Flashcard) IsDue(now time.Time) bool {
	return f.LastScheduled == nil || !f.LastScheduled.After(now)
}

// Validate checks the invariants tying the review fields together:
// stability and difficulty are both set or both unset, and they are unset
// exactly when the card has never been reviewed.
func (f *Flashcard) Validate() error {
	if f.Front == "" {
		return fmt.Errorf("%w: front is empty", ErrInvalidFlashcard)
	}
	if (f.LastStability == nil) != (f.LastDifficulty == nil) {
		return fmt.Errorf("%w: stability and difficulty must be set together", ErrInvalidFlashcard)
	}
	if (f.LastStability == nil) != (f.LastReviewed == nil) {
		return fmt.Errorf("%w: memory state must be present iff the card was reviewed", ErrInvalidFlashcard)
	}
	if f.LastRating != nil && !f.LastRating.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidFlashcard, ErrInvalidRating)
	}
	return nil
}

// DueCard is a flashcard loaded for a review together with its deck name.
type DueCard struct {
	Flashcard
	DeckName string `json:"deck_name"`
}

// ReviewUpdate is the outcome of rating a card, ready to be persisted.
type ReviewUpdate struct {
	FlashcardID int64
	Rating      Rating
	Memory      MemoryState
	ReviewedAt  time.Time
	ScheduledAt time.Time
}
