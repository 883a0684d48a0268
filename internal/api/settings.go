package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-live/internal/api/shared"
	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/protocol"
)

// SettingsRequest is the body of POST /settings.
type SettingsRequest struct {
	UserID   string             `json:"user_id_for_settings" validate:"required"`
	Settings []protocol.Setting `json:"settings" validate:"required"`
}

// SettingsResponse reports how many live sessions took the new settings.
type SettingsResponse struct {
	Status          string `json:"status"`
	SessionsUpdated int    `json:"sessionsUpdated"`
}

// SettingsHandler pushes changed settings into a user's live sessions.
type SettingsHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(manager SessionManager, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{
		manager: manager,
		logger:  logger.With("component", "settings_handler"),
	}
}

// Update serves POST /settings. A user without live sessions is not an
// error; the settings are saved and the next session starts with them.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SettingsRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithStatus(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithStatus(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
		return
	}

	updated, err := h.manager.ApplySettings(r.Context(), req.UserID, req.Settings)
	if err != nil {
		// Sessions that could not queue the update keep their old settings.
		log.Warn("settings not fully applied", "user_id", req.UserID, "error", err)
	}
	log.Info("settings forwarded", "user_id", req.UserID, "sessions_updated", updated)

	shared.RespondWithJSON(w, r, http.StatusOK, SettingsResponse{
		Status:          shared.StatusSuccess,
		SessionsUpdated: updated,
	})
}
