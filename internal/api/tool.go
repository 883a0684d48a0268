package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-live/internal/api/shared"
	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/redact"
	"github.com/phrazzld/scry-live/internal/session"
)

// ToolResponse is the body POST /tool and GET /tool answer with.
type ToolResponse struct {
	Status  string `json:"status"`
	Reply   string `json:"reply,omitempty"`
	Message string `json:"message,omitempty"`
}

// ToolHandler forwards tool calls to the session observer.
type ToolHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

// NewToolHandler creates a ToolHandler.
func NewToolHandler(manager SessionManager, logger *slog.Logger) *ToolHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolHandler{
		manager: manager,
		logger:  logger.With("component", "tool_handler"),
	}
}

// Call serves POST /tool.
func (h *ToolHandler) Call(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var call session.ToolCall
	if err := shared.DecodeJSON(w, r, &call); err != nil {
		shared.RespondWithJSON(w, r, http.StatusBadRequest,
			ToolResponse{Status: shared.StatusError, Message: "Invalid request format"})
		return
	}
	if err := shared.ValidateRequest(&call); err != nil {
		shared.RespondWithJSON(w, r, http.StatusBadRequest,
			ToolResponse{Status: shared.StatusError, Message: shared.ValidationMessage(err)})
		return
	}

	reply, err := h.manager.ToolCall(r.Context(), call)
	if err != nil {
		log.Error("tool call failed", "tool_id", call.ToolID, "error", redact.Error(err))
		shared.RespondWithJSON(w, r, http.StatusInternalServerError,
			ToolResponse{Status: shared.StatusError, Message: GetSafeErrorMessage(err)})
		return
	}
	log.Debug("tool call answered", "tool_id", call.ToolID, "has_reply", reply != "")
	shared.RespondWithJSON(w, r, http.StatusOK, ToolResponse{Status: shared.StatusSuccess, Reply: reply})
}

// Hello serves GET /tool, which the cloud uses as a reachability probe.
func (h *ToolHandler) Hello(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ToolResponse{Status: shared.StatusSuccess, Reply: "Hello, world!"})
}
