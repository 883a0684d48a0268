package events

import (
	"context"
	"errors"
	"time"
)

// ErrHandlerPanic wraps a panic recovered from a handler.
var ErrHandlerPanic = errors.New("event handler panicked")

// Kind separates the two handler registries.
type Kind string

// Event kinds
const (
	KindStream Kind = "stream"
	KindSystem Kind = "system"
)

// Event is one emission delivered to handlers.
type Event struct {
	// Kind says which registry Tag belongs to.
	Kind Kind

	// Tag is the stream tag or system event name.
	Tag string

	// Payload is the decoded message body; its concrete type depends on Tag.
	Payload any

	// EmittedAt is when the bus started dispatching the event.
	EmittedAt time.Time
}

// Handler reacts to an event. Handlers must return quickly; longer work
// belongs on a task queue.
type Handler func(ctx context.Context, ev Event) error

// Publisher is the emitting half of the bus.
type Publisher interface {
	// EmitStream delivers payload to every handler registered for tag.
	EmitStream(ctx context.Context, tag string, payload any) error

	// EmitSystem delivers payload to every handler registered for name.
	EmitSystem(ctx context.Context, name string, payload any) error
}

// Subscriber is the registering half of the bus.
type Subscriber interface {
	// OnStream appends h to the handlers for tag and returns a function
	// that removes it again.
	OnStream(tag string, h Handler) (remove func())

	// OnSystem appends h to the handlers for name and returns a function
	// that removes it again.
	OnSystem(name string, h Handler) (remove func())
}
