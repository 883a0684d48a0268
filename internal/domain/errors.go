package domain

import "errors"

// Common domain errors
var (
	// ErrModelState indicates a reviewed flashcard is missing its stored
	// stability or difficulty. This is a data-integrity fault.
	ErrModelState = errors.New("flashcard memory state is inconsistent")

	// ErrInvalidRating is returned when a rating word is not one of the four
	// known ratings.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidSetting is returned when a settings value falls outside [1,100].
	ErrInvalidSetting = errors.New("invalid setting value")

	// ErrInvalidFlashcard is returned when a flashcard fails validation.
	ErrInvalidFlashcard = errors.New("invalid flashcard")
)
