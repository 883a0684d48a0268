package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/session"
	"github.com/phrazzld/scry-live/internal/store"
	"github.com/phrazzld/scry-live/internal/transport"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"invalid request", fmt.Errorf("%w: missing userId", session.ErrInvalidRequest), http.StatusBadRequest, "Missing required fields"},
		{"untrusted host", session.ErrUntrustedDomain, http.StatusBadRequest, "Untrusted websocket host"},
		{"bad url", fmt.Errorf("%w: scheme", transport.ErrInvalidURL), http.StatusBadRequest, "Invalid websocket URL"},
		{"connect failed", fmt.Errorf("%w after 3 attempts: refused", transport.ErrConnectFailed), http.StatusInternalServerError, "Failed to connect to session"},
		{"bad setting", domain.ErrInvalidSetting, http.StatusBadRequest, "Invalid setting value"},
		{"not found", store.ErrSettingsNotFound, http.StatusNotFound, "Not found"},
		{"observer", fmt.Errorf("%w: hook", session.ErrObserverFailed), http.StatusInternalServerError, "Session hook failed"},
		{"unknown", errors.New("postgres://user:pw@db down"), http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.message, GetSafeErrorMessage(tc.err))
		})
	}
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
