package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
)

type registration struct {
	id      uint64
	handler Handler
}

// Bus is an in-memory Publisher and Subscriber. It performs no I/O and is
// safe for concurrent use from any number of dispatching goroutines.
type Bus struct {
	mu      sync.RWMutex
	nextID  uint64
	streams map[string][]registration
	system  map[string][]registration
	logger  *slog.Logger
	now     func() time.Time
}

var (
	_ Publisher  = (*Bus)(nil)
	_ Subscriber = (*Bus)(nil)
)

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		streams: make(map[string][]registration),
		system:  make(map[string][]registration),
		logger:  logger.With("component", "event_bus"),
		now:     time.Now,
	}
}

// OnStream implements Subscriber.
func (b *Bus) OnStream(tag string, h Handler) func() {
	return b.register(b.streams, KindStream, tag, h)
}

// OnSystem implements Subscriber.
func (b *Bus) OnSystem(name string, h Handler) func() {
	return b.register(b.system, KindSystem, name, h)
}

// EmitStream implements Publisher.
func (b *Bus) EmitStream(ctx context.Context, tag string, payload any) error {
	return b.emit(ctx, b.streams, KindStream, tag, payload)
}

// EmitSystem implements Publisher.
func (b *Bus) EmitSystem(ctx context.Context, name string, payload any) error {
	return b.emit(ctx, b.system, KindSystem, name, payload)
}

// ActiveStreams returns, sorted, every stream tag that has at least one
// handler. It is used for subscription bookkeeping and diagnostics.
func (b *Bus) ActiveStreams() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tags := make([]string, 0, len(b.streams))
	for tag := range b.streams {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (b *Bus) register(m map[string][]registration, kind Kind, tag string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	m[tag] = append(m[tag], registration{id: id, handler: h})
	count := len(m[tag])
	b.mu.Unlock()

	b.logger.Debug("registered event handler", "kind", kind, "tag", tag, "handler_count", count)

	var once sync.Once
	return func() {
		once.Do(func() { b.unregister(m, tag, id) })
	}
}

func (b *Bus) unregister(m map[string][]registration, tag string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := m[tag]
	for i, r := range regs {
		if r.id == id {
			// Copy rather than splice so emissions holding the old slice are unaffected.
			next := make([]registration, 0, len(regs)-1)
			next = append(next, regs[:i]...)
			next = append(next, regs[i+1:]...)
			regs = next
			break
		}
	}
	if len(regs) == 0 {
		delete(m, tag)
		return
	}
	m[tag] = regs
}

// emit runs every handler for tag in registration order. Failures are
// logged and the first one is returned once all handlers have run.
func (b *Bus) emit(ctx context.Context, m map[string][]registration, kind Kind, tag string, payload any) error {
	b.mu.RLock()
	regs := m[tag]
	b.mu.RUnlock()

	if len(regs) == 0 {
		b.logger.Debug("no handlers registered for event", "kind", kind, "tag", tag)
		return nil
	}

	ev := Event{Kind: kind, Tag: tag, Payload: payload, EmittedAt: b.now()}

	var firstErr error
	for i, r := range regs {
		if err := b.invoke(ctx, r.handler, ev); err != nil {
			b.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"kind", kind,
				"tag", tag)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (b *Bus) invoke(ctx context.Context, h Handler, ev Event) (err error) {
	var pc panics.Catcher
	pc.Try(func() { err = h(ctx, ev) })
	if rec := pc.Recovered(); rec != nil {
		b.logger.Error("recovered panic in event handler",
			"tag", ev.Tag,
			"panic", fmt.Sprint(rec.Value),
			"stack", string(rec.Stack))
		return fmt.Errorf("%w: %v", ErrHandlerPanic, rec.Value)
	}
	return err
}
