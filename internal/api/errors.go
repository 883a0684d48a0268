package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/session"
	"github.com/phrazzld/scry-live/internal/store"
	"github.com/phrazzld/scry-live/internal/transport"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// error types never leak to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, session.ErrUntrustedDomain),
		errors.Is(err, transport.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidSetting),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, session.ErrInvalidRequest):
		return "Missing required fields"

	case errors.Is(err, session.ErrUntrustedDomain):
		return "Untrusted websocket host"

	case errors.Is(err, transport.ErrInvalidURL):
		return "Invalid websocket URL"

	case errors.Is(err, transport.ErrConnectFailed):
		return "Failed to connect to session"

	case errors.Is(err, domain.ErrInvalidSetting):
		return "Invalid setting value"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, session.ErrObserverFailed):
		return "Session hook failed"

	default:
		return "An unexpected error occurred"
	}
}
