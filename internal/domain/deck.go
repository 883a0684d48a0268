package domain

// Deck groups flashcards and is owned by exactly one identity.
type Deck struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}
