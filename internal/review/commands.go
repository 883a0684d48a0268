package review

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/phrazzld/scry-live/internal/domain"
)

// CommandKind identifies what a transcription asks for.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandStart
	CommandReveal
	CommandRate
)

func (k CommandKind) String() string {
	switch k {
	case CommandStart:
		return "start"
	case CommandReveal:
		return "reveal"
	case CommandRate:
		return "rate"
	default:
		return "none"
	}
}

// Command is an interpreted transcription. Rating is set only for
// CommandRate.
type Command struct {
	Kind   CommandKind
	Rating domain.Rating
}

// Spoken keywords. Matching is by substring on the normalised text, so
// "that was easy" rates easy.
const (
	wordStart  = "start"
	wordReveal = "reveal"
)

// ratingWords is checked in order; the first word found wins.
var ratingWords = []struct {
	word   string
	rating domain.Rating
}{
	{"easy", domain.RatingEasy},
	{"good", domain.RatingGood},
	{"difficult", domain.RatingDifficult},
	{"again", domain.RatingAgain},
}

// Normalize folds case and compatibility forms and trims surrounding space.
func Normalize(text string) string {
	// A Caser keeps state between calls, so each call gets its own.
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(text)))
}

// Interpret maps a transcription to a command. Before the review has
// started only "start" is recognised; afterwards "reveal" takes precedence
// over rating words and "start" is ignored.
func Interpret(text string, started bool) Command {
	t := Normalize(text)
	if !started {
		if strings.Contains(t, wordStart) {
			return Command{Kind: CommandStart}
		}
		return Command{}
	}

	if strings.Contains(t, wordReveal) {
		return Command{Kind: CommandReveal}
	}
	if r, ok := ParseRatingWord(t); ok {
		return Command{Kind: CommandRate, Rating: r}
	}
	return Command{}
}

// ParseRatingWord finds the first rating word contained in text.
func ParseRatingWord(text string) (domain.Rating, bool) {
	t := Normalize(text)
	for _, rw := range ratingWords {
		if strings.Contains(t, rw.word) {
			return rw.rating, true
		}
	}
	return "", false
}

// IsRevealGesture reports whether a head position should reveal the card.
func IsRevealGesture(position string) bool {
	return strings.Contains(Normalize(position), "up")
}
