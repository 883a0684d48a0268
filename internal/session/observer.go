package session

import (
	"context"
	"encoding/json"
)

// ToolCall is a tool invocation forwarded by the cloud.
type ToolCall struct {
	ToolID         string          `json:"tool_id" validate:"required"`
	ToolParameters json.RawMessage `json:"tool_parameters,omitempty"`
}

// Observer is notified of session lifecycle events. An error from
// OnSession aborts the session being started; an error from OnStop is
// reported but the session is torn down regardless.
type Observer interface {
	OnSession(ctx context.Context, s *Session) error
	OnStop(ctx context.Context, req StopRequest) error

	// OnToolCall answers a tool call. An empty reply means there is
	// nothing to say.
	OnToolCall(ctx context.Context, call ToolCall) (reply string, err error)
}

// NopObserver accepts everything and replies with nothing.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) OnSession(context.Context, *Session) error { return nil }

func (NopObserver) OnStop(context.Context, StopRequest) error { return nil }

func (NopObserver) OnToolCall(context.Context, ToolCall) (string, error) { return "", nil }
