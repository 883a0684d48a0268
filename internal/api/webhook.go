package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-live/internal/api/shared"
	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/protocol"
	"github.com/phrazzld/scry-live/internal/redact"
	"github.com/phrazzld/scry-live/internal/session"
)

// Webhook types sent by the cloud.
const (
	WebhookSessionRequest = "session_request"
	WebhookStopRequest    = "stop_request"
)

// SessionManager is the part of session.Manager the handlers drive.
type SessionManager interface {
	Start(ctx context.Context, req session.SessionRequest) error
	Stop(ctx context.Context, req session.StopRequest) error
	ApplySettings(ctx context.Context, userID string, settings []protocol.Setting) (int, error)
	ToolCall(ctx context.Context, call session.ToolCall) (string, error)
	Count() int
}

var _ SessionManager = (*session.Manager)(nil)

// WebhookRequest is the body of POST /webhook.
type WebhookRequest struct {
	Type         string `json:"type" validate:"required"`
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId"`
	WebsocketURL string `json:"augmentOSWebsocketUrl"`
	Timestamp    string `json:"timestamp"`
	Reason       string `json:"reason"`
}

// WebhookHandler starts and stops sessions on the cloud's request.
type WebhookHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(manager SessionManager, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		manager: manager,
		logger:  logger.With("component", "webhook_handler"),
	}
}

// Handle serves POST /webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req WebhookRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		log.Debug("invalid webhook body", "error", redact.Error(err))
		shared.RespondWithStatus(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithStatus(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
		return
	}

	log = log.With("webhook_type", req.Type, "session_id", req.SessionID, "user_id", req.UserID)

	var err error
	switch req.Type {
	case WebhookSessionRequest:
		log.Info("session requested")
		err = h.manager.Start(r.Context(), session.SessionRequest{
			SessionID:    req.SessionID,
			UserID:       req.UserID,
			WebsocketURL: req.WebsocketURL,
		})
	case WebhookStopRequest:
		log.Info("session stop requested", "reason", req.Reason)
		err = h.manager.Stop(r.Context(), session.StopRequest{
			SessionID: req.SessionID,
			UserID:    req.UserID,
			Reason:    req.Reason,
		})
	default:
		log.Warn("unknown webhook type")
		shared.RespondWithStatus(w, r, http.StatusBadRequest, "Unknown webhook type")
		return
	}

	if err != nil {
		status := MapErrorToStatusCode(err)
		log.Log(r.Context(), levelFor(status), "webhook failed", "status_code", status, "error", redact.Error(err))
		shared.RespondWithStatus(w, r, status, GetSafeErrorMessage(err))
		return
	}
	shared.RespondWithStatus(w, r, http.StatusOK, "")
}

func levelFor(status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelWarn
}
