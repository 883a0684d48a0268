package review

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDependency indicates a Session was built without a required
	// collaborator.
	ErrMissingDependency = errors.New("review session dependency missing")

	// ErrNoCurrentCard indicates a command needs a card on display and
	// there is none.
	ErrNoCurrentCard = errors.New("no card on display")
)

// SessionError wraps a failed review operation with the operation name so
// callers can tell a failed load from a failed display with errors.As.
type SessionError struct {
	// Operation is the step that failed (e.g. "load_queue", "display").
	Operation string
	// Message describes the failure.
	Message string
	// Err is the underlying error.
	Err error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("review %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("review %s failed: %s", e.Operation, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func opError(operation, message string, err error) *SessionError {
	return &SessionError{Operation: operation, Message: message, Err: err}
}
