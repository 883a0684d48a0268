// Package srs turns a rating on a flashcard into the card's next memory
// state and due date. It is pure apart from reading the injected clock.
package srs
