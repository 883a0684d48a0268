package domain

import "fmt"

// Rating is the user's self-assessed recall of a card.
type Rating string

// Ratings from easiest to hardest.
const (
	RatingEasy      Rating = "easy"
	RatingGood      Rating = "good"
	RatingDifficult Rating = "difficult"
	RatingAgain     Rating = "again"
)

// Ratings lists every rating in the order spoken commands are matched.
var Ratings = []Rating{RatingEasy, RatingGood, RatingDifficult, RatingAgain}

// ParseRating converts an exact rating word to a Rating.
func ParseRating(s string) (Rating, error) {
	r := Rating(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// Valid reports whether r is one of the four known ratings.
func (r Rating) Valid() bool {
	switch r {
	case RatingEasy, RatingGood, RatingDifficult, RatingAgain:
		return true
	}
	return false
}

func (r Rating) String() string { return string(r) }
