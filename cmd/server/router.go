package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/scry-live/internal/api"
	apiMiddleware "github.com/phrazzld/scry-live/internal/api/middleware"
	"github.com/phrazzld/scry-live/internal/domain"
)

// setupRouter builds the router for the cloud-facing webhooks and the
// authenticated read API.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(apiMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)

	webhookHandler := api.NewWebhookHandler(app.sessions, app.logger)
	toolHandler := api.NewToolHandler(app.sessions, app.logger)
	settingsHandler := api.NewSettingsHandler(app.sessions, app.logger)
	healthHandler := api.NewHealthHandler(app.sessions, app.config.App.PackageName)
	cardHandler := api.NewCardHandler(app.stores, domain.Settings{
		MaxCardsPerSession: app.config.Review.DefaultMaxCards,
		DesiredRetention:   app.config.Review.DefaultRetention,
	}, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.verifier)

	// Called by the cloud.
	r.Post("/webhook", webhookHandler.Handle)
	r.Post("/tool", toolHandler.Call)
	r.Get("/tool", toolHandler.Hello)
	r.Post("/settings", settingsHandler.Update)
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(apiMiddleware.RequireIdentity)

		r.Get("/me", cardHandler.Me)
		r.Get("/cards/due", cardHandler.DueCards)
	})

	return r
}
