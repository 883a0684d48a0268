package api

import (
	"net/http"

	"github.com/phrazzld/scry-live/internal/api/shared"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	App            string `json:"app"`
	ActiveSessions int    `json:"activeSessions"`
}

// HealthHandler reports liveness and the number of live sessions.
type HealthHandler struct {
	manager     SessionManager
	packageName string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(manager SessionManager, packageName string) *HealthHandler {
	return &HealthHandler{manager: manager, packageName: packageName}
}

// Check serves GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:         "healthy",
		App:            h.packageName,
		ActiveSessions: h.manager.Count(),
	})
}
