// Package fsrs adapts the flux FSRS-6 scheduler to the review engine: given
// a card's memory state, the whole days since its last review and a
// retention target, it returns the four candidate next states (one per
// grade) and their intervals.
//
// Learning steps and interval fuzzing are disabled, so every grade lands
// directly on the model's review interval.
package fsrs
