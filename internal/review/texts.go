package review

import "fmt"

const (
	textNoneDue = "No flashcards scheduled for review now.\n" +
		"Please add flashcards in the Mentra app interface."

	textAllReviewed = "All cards reviewed! You can end the session in the Mentra app\ninterface."

	textInstructions = " for review. Say 'start' to begin.\n" +
		"Look up or say 'reveal' to display the back answer on each card.\n" +
		"Say 'easy', 'good', 'difficult', or 'again'\n" +
		"to rate your card memorization."
)

func announcement(due int) string {
	switch due {
	case 0:
		return textNoneDue
	case 1:
		return "1 card" + textInstructions
	default:
		return fmt.Sprintf("%d cards%s", due, textInstructions)
	}
}

func progress(deckName string, remaining int) string {
	return fmt.Sprintf("%s (%d left)", deckName, remaining)
}
