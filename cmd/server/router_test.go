package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-live/internal/auth"
	"github.com/phrazzld/scry-live/internal/config"
	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/platform/migrations"
	"github.com/phrazzld/scry-live/internal/session"
)

const testAPIKey = "app-secret"

func newTestApplication(t *testing.T) *application {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "debug"},
		Database: config.DatabaseConfig{Driver: migrations.DriverSQLite, URL: filepath.Join(t.TempDir(), "scry.db")},
		App: config.AppConfig{
			PackageName: "com.example.scry",
			APIKey:      testAPIKey,
			CloudAPIURL: config.DefaultCloudAPIURL,
		},
		Transport: config.TransportConfig{MaxAttempts: 1, HandshakeTimeout: 1e9, WriteTimeout: 1e9},
		Review:    config.ReviewConfig{DefaultMaxCards: 20, DefaultRetention: 75, QueueCapacity: 100},
	}

	db, err := openDatabase(ctx, cfg.Database)
	require.NoError(t, err)
	m, err := migrations.New(cfg.Database.Driver, db, log)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))

	cookies, err := auth.NewCookieIssuer("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	stores := newStores(cfg.Database.Driver, db, log)
	app := &application{
		config:   cfg,
		logger:   log,
		db:       db,
		stores:   stores,
		verifier: auth.NewVerifier(nil, nil, cookies, testAPIKey, log),
		sessions: session.NewManager(cfg, stores, log),
	}
	t.Cleanup(func() { app.cleanup(context.Background()) })
	return app
}

func TestRouterHealth(t *testing.T) {
	srv := httptest.NewServer(newTestApplication(t).setupRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "com.example.scry", body["app"])
	assert.EqualValues(t, 0, body["activeSessions"])
}

func TestRouterWebhookRejectsUntrustedHost(t *testing.T) {
	srv := httptest.NewServer(newTestApplication(t).setupRouter())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(`{
		"type": "session_request",
		"sessionId": "s-1",
		"userId": "u1",
		"augmentOSWebsocketUrl": "wss://attacker.example/ws"
	}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{"status": "error", "message": "Untrusted websocket host"}, body)
}

func TestRouterToolHello(t *testing.T) {
	srv := httptest.NewServer(newTestApplication(t).setupRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/tool")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterAPIRequiresIdentity(t *testing.T) {
	app := newTestApplication(t)
	deck := domain.Deck{Name: "Spanish", UserID: "u1"}
	require.NoError(t, app.stores.Decks.Create(context.Background(), &deck))
	require.NoError(t, app.stores.Flashcards.Create(context.Background(),
		&domain.Flashcard{DeckID: deck.ID, Front: "hola", Back: "hello"}))

	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/cards/due")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	token := auth.FrontendToken("u1", testAPIKey)
	resp, err = http.Get(srv.URL + "/api/cards/due?" + auth.QueryFrontendToken + "=" + token)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Cards []domain.DueCard `json:"cards"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Cards, 1)
	assert.Equal(t, "hola", body.Cards[0].Front)
}
