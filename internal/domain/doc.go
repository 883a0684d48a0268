// Package domain defines the core entities of a live review: decks,
// flashcards and their memory state, ratings, and per-user review settings.
//
// Types here carry their own validation so that stores and the review loop
// can reject inconsistent records at the boundary.
package domain
