package review

import (
	"context"
	"fmt"

	"github.com/phrazzld/scry-live/internal/events"
	"github.com/phrazzld/scry-live/internal/protocol"
	"github.com/phrazzld/scry-live/internal/task"
)

// Attach registers the session's handlers on bus. Handlers only decode the
// event and submit the work; Close removes them again.
func (s *Session) Attach(bus events.Subscriber) {
	s.detachMu.Lock()
	defer s.detachMu.Unlock()

	s.detach = append(s.detach,
		bus.OnStream(protocol.StreamTranscription, s.onTranscription),
		bus.OnStream(protocol.StreamHeadPosition, s.onHeadPosition),
		bus.OnStream(protocol.StreamButtonPress, s.onButtonPress),
		bus.OnSystem(protocol.SystemConnected, s.onConnected),
		bus.OnSystem(protocol.SystemSettingsUpdate, s.onSettingsUpdate),
	)
}

// Close removes the session's handlers. It is safe to call more than once.
func (s *Session) Close() {
	s.detachMu.Lock()
	detach := s.detach
	s.detach = nil
	s.detachMu.Unlock()

	for _, remove := range detach {
		remove()
	}
}

// SubmitSettings schedules ApplySettings behind any work already queued.
func (s *Session) SubmitSettings(settings []protocol.Setting) error {
	return s.tasks.Submit(task.TypeReviewSettings, func(ctx context.Context) error {
		return s.ApplySettings(ctx, settings)
	})
}

func (s *Session) onTranscription(_ context.Context, ev events.Event) error {
	data, ok := ev.Payload.(protocol.TranscriptionData)
	if !ok {
		return unexpectedPayload(ev)
	}
	if !data.IsFinal {
		return nil
	}
	return s.tasks.Submit(task.TypeReviewCommand, func(ctx context.Context) error {
		return s.HandleTranscription(ctx, data.Text)
	})
}

func (s *Session) onHeadPosition(_ context.Context, ev events.Event) error {
	data, ok := ev.Payload.(protocol.HeadPositionData)
	if !ok {
		return unexpectedPayload(ev)
	}
	if !IsRevealGesture(data.Position) {
		return nil
	}
	return s.tasks.Submit(task.TypeReviewCommand, s.Reveal)
}

func (s *Session) onButtonPress(_ context.Context, ev events.Event) error {
	if _, ok := ev.Payload.(protocol.ButtonPressData); !ok {
		return unexpectedPayload(ev)
	}
	return s.tasks.Submit(task.TypeReviewCommand, s.Reveal)
}

func (s *Session) onConnected(_ context.Context, ev events.Event) error {
	ack, ok := ev.Payload.(protocol.ConnectionAck)
	if !ok {
		return unexpectedPayload(ev)
	}
	settings, err := ack.SettingsList()
	if err != nil {
		return err
	}
	if len(settings) == 0 {
		return nil
	}
	return s.SubmitSettings(settings)
}

func (s *Session) onSettingsUpdate(_ context.Context, ev events.Event) error {
	update, ok := ev.Payload.(protocol.SettingsUpdate)
	if !ok {
		return unexpectedPayload(ev)
	}
	return s.SubmitSettings(update.Settings)
}

func unexpectedPayload(ev events.Event) error {
	return fmt.Errorf("%w: %s %q carried %T", protocol.ErrMalformedPayload, ev.Kind, ev.Tag, ev.Payload)
}
