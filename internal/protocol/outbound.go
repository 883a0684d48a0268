package protocol

import (
	"time"
)

// Outbound frame types.
const (
	TypeConnectionInit     = "tpa_connection_init"
	TypeSubscriptionUpdate = "subscription_update"
	TypeDisplayEvent       = "display_event"
)

// ConnectionInit is the handshake sent right after the websocket opens.
type ConnectionInit struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	PackageName string `json:"packageName"`
	APIKey      string `json:"apiKey"`
	Timestamp   string `json:"timestamp"`
}

// NewConnectionInit builds the handshake for a session.
func NewConnectionInit(sessionID, packageName, apiKey string, at time.Time) ConnectionInit {
	return ConnectionInit{
		Type:        TypeConnectionInit,
		SessionID:   sessionID,
		PackageName: packageName,
		APIKey:      apiKey,
		Timestamp:   timestamp(at),
	}
}

// SubscriptionUpdate replaces the set of streams the cloud pushes.
type SubscriptionUpdate struct {
	Type          string   `json:"type"`
	PackageName   string   `json:"packageName"`
	Subscriptions []string `json:"subscriptions"`
	SessionID     string   `json:"sessionId"`
	Timestamp     string   `json:"timestamp"`
}

func NewSubscriptionUpdate(packageName, sessionID string, streams []string, at time.Time) SubscriptionUpdate {
	if streams == nil {
		streams = []string{}
	}
	return SubscriptionUpdate{
		Type:          TypeSubscriptionUpdate,
		PackageName:   packageName,
		Subscriptions: streams,
		SessionID:     sessionID,
		Timestamp:     timestamp(at),
	}
}

// DisplayEvent draws a layout on the user's glasses.
type DisplayEvent struct {
	Type        string  `json:"type"`
	PackageName string  `json:"packageName"`
	SessionID   string  `json:"sessionId"`
	View        View    `json:"view"`
	Layout      Layout  `json:"layout"`
	DurationMs  *uint64 `json:"durationMs,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

func timestamp(at time.Time) string {
	return at.UTC().Format(time.RFC3339Nano)
}
