package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/protocol"
	"github.com/phrazzld/scry-live/internal/session"
	"github.com/phrazzld/scry-live/internal/transport"
)

type fakeManager struct {
	mu sync.Mutex

	started  []session.SessionRequest
	stopped  []session.StopRequest
	settings map[string][]protocol.Setting
	calls    []session.ToolCall

	startErr error
	stopErr  error
	applyN   int
	applyErr error
	reply    string
	toolErr  error
	count    int
}

func (f *fakeManager) Start(_ context.Context, req session.SessionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, req)
	return f.startErr
}

func (f *fakeManager) Stop(_ context.Context, req session.StopRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, req)
	return f.stopErr
}

func (f *fakeManager) ApplySettings(_ context.Context, userID string, settings []protocol.Setting) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		f.settings = map[string][]protocol.Setting{}
	}
	f.settings[userID] = settings
	return f.applyN, f.applyErr
}

func (f *fakeManager) ToolCall(_ context.Context, call session.ToolCall) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.reply, f.toolErr
}

func (f *fakeManager) Count() int { return f.count }

func post(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestWebhookSessionRequest(t *testing.T) {
	m := &fakeManager{}
	h := NewWebhookHandler(m, logger.Discard())

	w := post(h.Handle, "/webhook", `{
		"type": "session_request",
		"sessionId": "s-1",
		"userId": "user@example.com",
		"augmentOSWebsocketUrl": "wss://prod.augmentos.cloud/tpa-ws",
		"timestamp": "2025-03-10T12:00:00Z"
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())
	require.Len(t, m.started, 1)
	assert.Equal(t, session.SessionRequest{
		SessionID:    "s-1",
		UserID:       "user@example.com",
		WebsocketURL: "wss://prod.augmentos.cloud/tpa-ws",
	}, m.started[0])
}

func TestWebhookStopRequest(t *testing.T) {
	m := &fakeManager{}
	h := NewWebhookHandler(m, logger.Discard())

	w := post(h.Handle, "/webhook", `{"type":"stop_request","sessionId":"s-1","userId":"u","reason":"user_disabled"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, m.stopped, 1)
	assert.Equal(t, session.StopRequest{SessionID: "s-1", UserID: "u", Reason: "user_disabled"}, m.stopped[0])
}

func TestWebhookFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		startErr error
		status   int
		message  string
	}{
		{
			name:    "malformed body",
			body:    `{"type":`,
			status:  http.StatusBadRequest,
			message: "Invalid request format",
		},
		{
			name:    "missing type",
			body:    `{"sessionId":"s-1"}`,
			status:  http.StatusBadRequest,
			message: "Invalid fields: Type (required)",
		},
		{
			name:    "unknown type",
			body:    `{"type":"reboot","sessionId":"s-1"}`,
			status:  http.StatusBadRequest,
			message: "Unknown webhook type",
		},
		{
			name:     "missing fields",
			body:     `{"type":"session_request","sessionId":"s-1"}`,
			startErr: fmt.Errorf("%w: userId is required", session.ErrInvalidRequest),
			status:   http.StatusBadRequest,
			message:  "Missing required fields",
		},
		{
			name:     "untrusted host",
			body:     `{"type":"session_request","sessionId":"s-1","userId":"u","augmentOSWebsocketUrl":"wss://evil.example/ws"}`,
			startErr: fmt.Errorf("%w: evil.example", session.ErrUntrustedDomain),
			status:   http.StatusBadRequest,
			message:  "Untrusted websocket host",
		},
		{
			name:     "connect failure",
			body:     `{"type":"session_request","sessionId":"s-1","userId":"u","augmentOSWebsocketUrl":"wss://prod.augmentos.cloud/ws"}`,
			startErr: fmt.Errorf("%w after 3 attempts: refused", transport.ErrConnectFailed),
			status:   http.StatusInternalServerError,
			message:  "Failed to connect to session",
		},
		{
			name:     "observer failure",
			body:     `{"type":"session_request","sessionId":"s-1","userId":"u","augmentOSWebsocketUrl":"wss://prod.augmentos.cloud/ws"}`,
			startErr: fmt.Errorf("%w: quota", session.ErrObserverFailed),
			status:   http.StatusInternalServerError,
			message:  "Session hook failed",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWebhookHandler(&fakeManager{startErr: tc.startErr}, logger.Discard())

			w := post(h.Handle, "/webhook", tc.body)

			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"status":"error","message":%q}`, tc.message), w.Body.String())
		})
	}
}

func TestToolCall(t *testing.T) {
	m := &fakeManager{reply: "3 cards left"}
	h := NewToolHandler(m, logger.Discard())

	w := post(h.Call, "/tool", `{"tool_id":"cards_left","tool_parameters":{"deck":"es"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","reply":"3 cards left"}`, w.Body.String())
	require.Len(t, m.calls, 1)
	assert.Equal(t, "cards_left", m.calls[0].ToolID)
	assert.JSONEq(t, `{"deck":"es"}`, string(m.calls[0].ToolParameters))
}

func TestToolCallFailures(t *testing.T) {
	h := NewToolHandler(&fakeManager{}, logger.Discard())
	w := post(h.Call, "/tool", `{"tool_parameters":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid fields: ToolID (required)"}`, w.Body.String())

	h = NewToolHandler(&fakeManager{toolErr: fmt.Errorf("%w: boom", session.ErrObserverFailed)}, logger.Discard())
	w = post(h.Call, "/tool", `{"tool_id":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Session hook failed"}`, w.Body.String())
}

func TestToolHello(t *testing.T) {
	h := NewToolHandler(&fakeManager{}, logger.Discard())
	w := httptest.NewRecorder()
	h.Hello(w, httptest.NewRequest(http.MethodGet, "/tool", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","reply":"Hello, world!"}`, w.Body.String())
}

func TestSettingsUpdate(t *testing.T) {
	m := &fakeManager{applyN: 2}
	h := NewSettingsHandler(m, logger.Discard())

	w := post(h.Update, "/settings", `{
		"user_id_for_settings": "u1",
		"settings": [{"key":"max_cards_per_session","value":"5"}]
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","sessionsUpdated":2}`, w.Body.String())
	require.Len(t, m.settings["u1"], 1)
	assert.Equal(t, "max_cards_per_session", m.settings["u1"][0].Key)
}

func TestSettingsUpdatePartialFailure(t *testing.T) {
	m := &fakeManager{applyN: 1, applyErr: errors.New("session s-2: task queue is full")}
	h := NewSettingsHandler(m, logger.Discard())

	w := post(h.Update, "/settings", `{"user_id_for_settings":"u1","settings":[]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","sessionsUpdated":1}`, w.Body.String())
}

func TestSettingsUpdateRequiresUser(t *testing.T) {
	m := &fakeManager{}
	h := NewSettingsHandler(m, logger.Discard())

	w := post(h.Update, "/settings", `{"settings":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid fields: UserID (required)"}`, w.Body.String())
	assert.Empty(t, m.settings)
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(&fakeManager{count: 3}, "com.example.scry")
	w := httptest.NewRecorder()
	h.Check(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","app":"com.example.scry","activeSessions":3}`, w.Body.String())
}
