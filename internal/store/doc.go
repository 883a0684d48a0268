// Package store defines the persistence contracts the review engine relies
// on: decks and flashcards owned by an identity, and per-identity review
// settings. Implementations live under internal/platform.
package store
