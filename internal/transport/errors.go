package transport

import "errors"

var (
	// ErrInvalidURL is returned by Connect before any network attempt when
	// the URL is not an absolute ws or wss URL.
	ErrInvalidURL = errors.New("invalid websocket url")

	// ErrConnectFailed is returned when every connection attempt failed or
	// the handshake could not be sent.
	ErrConnectFailed = errors.New("websocket connect failed")

	// ErrNotConnected is returned by sends on a connection that is not open.
	ErrNotConnected = errors.New("websocket not connected")

	// ErrSendFailed wraps a write error on an open connection.
	ErrSendFailed = errors.New("websocket send failed")

	// ErrSerializationFailed wraps a JSON encoding error for an outbound frame.
	ErrSerializationFailed = errors.New("frame serialization failed")
)
