// Package main runs the flashcard review app: an HTTP server that takes
// session webhooks from the glasses cloud and drives one live review per
// session, plus the schema migration commands.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
