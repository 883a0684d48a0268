package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/phrazzld/scry-live/internal/events"
)

// ErrMalformedPayload is returned when an inbound frame cannot be decoded.
var ErrMalformedPayload = errors.New("malformed payload")

// Inbound frame types. Some frames have a legacy "tpa_" alias.
const (
	TypeConnectionAck            = "connection_ack"
	TypeConnectionAckLegacy      = "tpa_connection_ack"
	TypeConnectionError          = "connection_error"
	TypeConnectionErrorLegacy    = "tpa_connection_error"
	TypeDataStream               = "data_stream"
	TypeSettingsUpdate           = "settings_update"
	TypePermissionError          = "permission_error"
	TypeDashboardModeChanged     = "dashboard_mode_changed"
	TypeDashboardAlwaysOnChanged = "dashboard_always_on_changed"
	TypeCustomMessage            = "custom_message"
	TypeAppStopped               = "app_stopped"
	TypeSubscriptionAck          = "subscription_ack"
	TypeSubscriptionUpdateAck    = "subscription_update_ack"
)

// System event names published on the bus.
const (
	SystemConnected               = "connected"
	SystemError                   = "error"
	SystemSettingsUpdate          = "settings_update"
	SystemPermissionError         = "permission_error"
	SystemDashboardModeChange     = "dashboard_mode_change"
	SystemDashboardAlwaysOnChange = "dashboard_always_on_change"
	SystemCustomMessage           = "custom_message"
	SystemAppStopped              = "app_stopped"
	SystemSubscriptionAck         = "subscription_ack"
	SystemUnhandled               = "unhandled"
)

// Message is a decoded inbound frame. The implementations in this package
// are the complete set.
type Message interface {
	// FrameType returns the "type" discriminator as it appeared on the wire.
	FrameType() string
	sealed()
}

// ConnectionAck confirms the handshake. Settings holds the user's app
// settings, if the cloud sent any.
type ConnectionAck struct {
	Type         string          `json:"type"`
	Settings     json.RawMessage `json:"settings,omitempty"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
}

// SettingsList decodes Settings as a list of key/value pairs. It returns
// nil when the ack carried no settings.
func (m ConnectionAck) SettingsList() ([]Setting, error) {
	if len(m.Settings) == 0 || isNull(m.Settings) {
		return nil, nil
	}
	var settings []Setting
	if err := json.Unmarshal(m.Settings, &settings); err != nil {
		return nil, fmt.Errorf("%w: connection ack settings: %v", ErrMalformedPayload, err)
	}
	return settings, nil
}

// ConnectionError reports a rejected handshake.
type ConnectionError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DataStream carries one telemetry sample. Tag is the bus tag derived from
// StreamType and Data is the typed payload (for example TranscriptionData),
// or the raw JSON for stream types published under StreamAll.
type DataStream struct {
	StreamType string
	Tag        string
	Data       any
}

// SettingsUpdate carries the user's complete current settings.
type SettingsUpdate struct {
	Type     string    `json:"type"`
	Settings []Setting `json:"settings"`
}

// Setting is one key/value pair from a settings list.
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Int returns the setting value as an integer. Numbers and numeric strings
// are accepted; fractional values are rejected.
func (s Setting) Int() (int, error) {
	var n json.Number
	if err := json.Unmarshal(s.Value, &n); err != nil {
		return 0, fmt.Errorf("%w: setting %q is not numeric", ErrMalformedPayload, s.Key)
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: setting %q is not an integer", ErrMalformedPayload, s.Key)
	}
	return int(f), nil
}

// PermissionError reports streams the app is not permitted to receive.
type PermissionError struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type DashboardModeChanged struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

type DashboardAlwaysOnChanged struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// CustomMessage is an app-defined action with an opaque payload.
type CustomMessage struct {
	Type    string          `json:"type"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// AppStopped tells the app the user stopped it. Raw is the whole frame.
type AppStopped struct {
	Raw json.RawMessage
}

type SubscriptionAck struct {
	Type          string          `json:"type"`
	Subscriptions []string        `json:"subscriptions,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// Unknown is any well-formed frame whose type is not modelled here.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (m ConnectionAck) FrameType() string            { return m.Type }
func (m ConnectionError) FrameType() string          { return m.Type }
func (m DataStream) FrameType() string               { return TypeDataStream }
func (m SettingsUpdate) FrameType() string           { return TypeSettingsUpdate }
func (m PermissionError) FrameType() string          { return TypePermissionError }
func (m DashboardModeChanged) FrameType() string     { return TypeDashboardModeChanged }
func (m DashboardAlwaysOnChanged) FrameType() string { return TypeDashboardAlwaysOnChanged }
func (m CustomMessage) FrameType() string            { return TypeCustomMessage }
func (m AppStopped) FrameType() string               { return TypeAppStopped }
func (m SubscriptionAck) FrameType() string          { return m.Type }
func (m Unknown) FrameType() string                  { return m.Type }

func (ConnectionAck) sealed()            {}
func (ConnectionError) sealed()          {}
func (DataStream) sealed()               {}
func (SettingsUpdate) sealed()           {}
func (PermissionError) sealed()          {}
func (DashboardModeChanged) sealed()     {}
func (DashboardAlwaysOnChanged) sealed() {}
func (CustomMessage) sealed()            {}
func (AppStopped) sealed()               {}
func (SubscriptionAck) sealed()          {}
func (Unknown) sealed()                  {}

// Decode parses one text frame. Errors wrap ErrMalformedPayload; a frame
// with an unrecognised type is not an error and decodes to Unknown.
func Decode(frame []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	rawType, ok := fields["type"]
	if !ok {
		return nil, fmt.Errorf("%w: missing type field", ErrMalformedPayload)
	}
	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return nil, fmt.Errorf("%w: type field is not a string", ErrMalformedPayload)
	}

	msg, err := decodeFrame(typ, frame, fields)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeFrame(typ string, frame []byte, fields map[string]json.RawMessage) (Message, error) {
	raw := json.RawMessage(bytes.Clone(frame))

	switch typ {
	case TypeConnectionAck, TypeConnectionAckLegacy:
		return decodeInto[ConnectionAck](frame, typ)

	case TypeConnectionError, TypeConnectionErrorLegacy:
		msg, err := decodeInto[ConnectionError](frame, typ)
		if err == nil && msg.Message == "" {
			msg.Message = "Unknown connection error"
		}
		return msg, err

	case TypeDataStream:
		return decodeDataStream(fields)

	case TypeSettingsUpdate:
		return decodeInto[SettingsUpdate](frame, typ)

	case TypePermissionError:
		msg, err := decodeInto[PermissionError](frame, typ)
		if err == nil && msg.Message == "" {
			msg.Message = "Permission denied"
		}
		return msg, err

	case TypeDashboardModeChanged:
		if _, ok := fields["mode"]; !ok {
			return nil, fmt.Errorf("%w: %s without mode", ErrMalformedPayload, typ)
		}
		return decodeInto[DashboardModeChanged](frame, typ)

	case TypeDashboardAlwaysOnChanged:
		if _, ok := fields["enabled"]; !ok {
			return nil, fmt.Errorf("%w: %s without enabled", ErrMalformedPayload, typ)
		}
		return decodeInto[DashboardAlwaysOnChanged](frame, typ)

	case TypeCustomMessage:
		msg, err := decodeInto[CustomMessage](frame, typ)
		if err == nil && (msg.Action == "" || len(msg.Payload) == 0) {
			return nil, fmt.Errorf("%w: %s requires action and payload", ErrMalformedPayload, typ)
		}
		return msg, err

	case TypeAppStopped:
		return AppStopped{Raw: raw}, nil

	case TypeSubscriptionAck, TypeSubscriptionUpdateAck:
		msg, err := decodeInto[SubscriptionAck](frame, typ)
		if err != nil {
			return nil, err
		}
		msg.Raw = raw
		return msg, nil

	default:
		return Unknown{Type: typ, Raw: raw}, nil
	}
}

func decodeInto[T Message](frame []byte, typ string) (T, error) {
	var msg T
	if err := json.Unmarshal(frame, &msg); err != nil {
		return msg, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, typ, err)
	}
	return msg, nil
}

func decodeDataStream(fields map[string]json.RawMessage) (Message, error) {
	streamType := "unknown"
	if rawStream, ok := fields["streamType"]; ok {
		if err := json.Unmarshal(rawStream, &streamType); err != nil {
			return nil, fmt.Errorf("%w: streamType is not a string", ErrMalformedPayload)
		}
	}

	data, ok := fields["data"]
	if !ok || isNull(data) {
		return nil, fmt.Errorf("%w: data_stream %s without data", ErrMalformedPayload, streamType)
	}

	tag, payload, err := decodeStream(streamType, data)
	if err != nil {
		return nil, fmt.Errorf("%w: data_stream %s: %v", ErrMalformedPayload, streamType, err)
	}
	return DataStream{StreamType: streamType, Tag: tag, Data: payload}, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// Route returns where msg is published on the event bus. Data streams are
// stream events carrying their typed data; every other message is a system
// event carrying the message itself.
func Route(msg Message) (events.Kind, string, any) {
	switch m := msg.(type) {
	case DataStream:
		return events.KindStream, m.Tag, m.Data
	case ConnectionAck:
		return events.KindSystem, SystemConnected, m
	case ConnectionError:
		return events.KindSystem, SystemError, m
	case SettingsUpdate:
		return events.KindSystem, SystemSettingsUpdate, m
	case PermissionError:
		return events.KindSystem, SystemPermissionError, m
	case DashboardModeChanged:
		return events.KindSystem, SystemDashboardModeChange, m
	case DashboardAlwaysOnChanged:
		return events.KindSystem, SystemDashboardAlwaysOnChange, m
	case CustomMessage:
		return events.KindSystem, SystemCustomMessage, m
	case AppStopped:
		return events.KindSystem, SystemAppStopped, m
	case SubscriptionAck:
		return events.KindSystem, SystemSubscriptionAck, m
	default:
		return events.KindSystem, SystemUnhandled, msg
	}
}

// Publish routes msg and emits it on p.
func Publish(ctx context.Context, p events.Publisher, msg Message) error {
	kind, tag, payload := Route(msg)
	if kind == events.KindStream {
		return p.EmitStream(ctx, tag, payload)
	}
	return p.EmitSystem(ctx, tag, payload)
}
