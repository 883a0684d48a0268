package session

import "errors"

var (
	// ErrInvalidRequest indicates a webhook request lacks a required field.
	ErrInvalidRequest = errors.New("invalid session request")

	// ErrUntrustedDomain indicates the websocket URL points at a host that
	// is neither the cloud domain nor an approved domain.
	ErrUntrustedDomain = errors.New("websocket host is not trusted")

	// ErrObserverFailed wraps an error returned by an Observer hook.
	ErrObserverFailed = errors.New("session observer failed")
)
