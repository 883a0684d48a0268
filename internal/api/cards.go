package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/scry-live/internal/api/shared"
	"github.com/phrazzld/scry-live/internal/auth"
	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/store"
)

// MeResponse describes the caller: their identity, review settings and
// decks.
type MeResponse struct {
	UserID   string          `json:"user_id"`
	Settings domain.Settings `json:"settings"`
	Decks    []domain.Deck   `json:"decks"`
}

// DueCardsResponse lists the caller's due cards in review order.
type DueCardsResponse struct {
	Cards []domain.DueCard `json:"cards"`
}

// CardHandler serves the authenticated read endpoints.
type CardHandler struct {
	stores   store.Stores
	defaults domain.Settings
	now      func() time.Time
	logger   *slog.Logger
}

// NewCardHandler creates a CardHandler. defaults are reported for callers
// who never saved settings and bound the default due-card limit.
func NewCardHandler(stores store.Stores, defaults domain.Settings, logger *slog.Logger) *CardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		stores:   stores,
		defaults: defaults,
		now:      time.Now,
		logger:   logger.With("component", "card_handler"),
	}
}

// Me serves GET /api/me.
func (h *CardHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	settings, err := h.stores.Settings.Get(r.Context(), userID)
	switch {
	case errors.Is(err, store.ErrSettingsNotFound):
		settings = h.defaults
	case err != nil:
		h.fail(w, r, "load settings", err)
		return
	}

	decks, err := h.stores.Decks.ListByUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "list decks", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MeResponse{
		UserID:   userID,
		Settings: settings,
		Decks:    decks,
	})
}

// DueCards serves GET /api/cards/due. The optional limit query parameter
// must lie in [1,100]; it defaults to the configured cards per session.
func (h *CardHandler) DueCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := h.defaults.MaxCardsPerSession
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < domain.MinSettingValue || n > domain.MaxSettingValue {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	cards, err := h.stores.Flashcards.ListDue(r.Context(), userID, h.now(), limit)
	if err != nil {
		h.fail(w, r, "list due cards", err)
		return
	}
	if cards == nil {
		cards = []domain.DueCard{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DueCardsResponse{Cards: cards})
}

func (h *CardHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("card handler failed", "operation", op)
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
