package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/scry-live/internal/config"
	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/domain/srs"
	"github.com/phrazzld/scry-live/internal/events"
	"github.com/phrazzld/scry-live/internal/protocol"
	"github.com/phrazzld/scry-live/internal/redact"
	"github.com/phrazzld/scry-live/internal/review"
	"github.com/phrazzld/scry-live/internal/store"
	"github.com/phrazzld/scry-live/internal/task"
	"github.com/phrazzld/scry-live/internal/transport"
)

// Manager starts, tracks and stops sessions.
type Manager struct {
	app       config.AppConfig
	transport config.TransportConfig
	reviewCfg config.ReviewConfig

	stores    store.Stores
	scheduler srs.Service
	observer  Observer
	registry  *Registry
	logger    *slog.Logger
	now       func() time.Time

	transportOpts []transport.Option
	trustedHosts  map[string]struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver sets the lifecycle observer. The default is NopObserver.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithScheduler replaces the default FSRS scheduler.
func WithScheduler(s srs.Service) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTransportOptions appends options to every connection the manager
// opens, after those derived from configuration.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(m *Manager) { m.transportOpts = append(m.transportOpts, opts...) }
}

// NewManager creates a manager with an empty registry.
func NewManager(cfg *config.Config, stores store.Stores, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		app:       cfg.App,
		transport: cfg.Transport,
		reviewCfg: cfg.Review,
		stores:    stores,
		scheduler: srs.NewService(),
		observer:  NopObserver{},
		registry:  NewRegistry(),
		logger:    logger.With("component", "session_manager"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.trustedHosts = map[string]struct{}{hostname(cfg.App.CloudDomain()): {}}
	for _, d := range cfg.App.ApprovedDomains {
		m.trustedHosts[hostname(d)] = struct{}{}
	}
	return m
}

// hostname lowercases host and strips any port.
func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.registry.Len()
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	return m.registry.Get(id)
}

// CheckURL validates a websocket URL and its host.
func (m *Manager) CheckURL(rawURL string) (*url.URL, error) {
	u, err := transport.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if _, ok := m.trustedHosts[hostname(u.Host)]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedDomain, u.Hostname())
	}
	return u, nil
}

// Start connects a new session and registers it. Nothing is registered
// unless the connection and the observer both succeed.
func (m *Manager) Start(ctx context.Context, req SessionRequest) error {
	if req.SessionID == "" || req.UserID == "" || req.WebsocketURL == "" {
		return fmt.Errorf("%w: sessionId, userId and websocket url are required", ErrInvalidRequest)
	}
	if _, err := m.CheckURL(req.WebsocketURL); err != nil {
		return err
	}

	log := m.logger.With("session_id", req.SessionID, "user_id", req.UserID)
	s, err := m.build(ctx, req, log)
	if err != nil {
		return err
	}

	handshake := protocol.NewConnectionInit(req.SessionID, m.app.PackageName, m.app.APIKey, m.now())
	if err := s.conn.Connect(ctx, req.WebsocketURL, handshake); err != nil {
		log.Error("failed to connect session", "error", redact.Error(err))
		s.close(ctx)
		return err
	}

	if err := s.review.Start(); err != nil {
		s.close(ctx)
		return fmt.Errorf("start review: %w", err)
	}

	if err := m.observer.OnSession(ctx, s); err != nil {
		log.Error("session observer rejected session", "error", err)
		s.close(ctx)
		return fmt.Errorf("%w: %w", ErrObserverFailed, err)
	}

	if old := m.registry.Add(s); old != nil {
		log.Warn("replacing existing session with the same id")
		old.close(ctx)
	}
	// The peer may have hung up before the session was registered; the
	// close hook could not remove it then.
	if !s.Connected() && m.registry.RemoveIf(s) {
		s.close(ctx)
		return fmt.Errorf("%w: connection ended during setup", transport.ErrNotConnected)
	}

	log.Info("session started", "active_sessions", m.registry.Len(), "streams", s.Streams())
	return nil
}

func (m *Manager) build(ctx context.Context, req SessionRequest, log *slog.Logger) (*Session, error) {
	bus := events.NewBus(log)
	lane := task.NewLane(task.DefaultLaneCapacity, log)
	lane.SetErrorHandler(func(t task.Task, err error) {
		log.Error("review task failed", "task_type", t.Type(), "task_id", t.ID(), "error", err)
	})

	s := &Session{
		ID:          req.SessionID,
		UserID:      req.UserID,
		PackageName: m.app.PackageName,
		StartedAt:   m.now(),
		bus:         bus,
		lane:        lane,
		logger:      log,
	}

	opts := append(transport.OptionsFromConfig(m.transport),
		transport.WithCloseHook(func(state transport.State, err error) {
			m.connectionEnded(s, state, err)
		}))
	opts = append(opts, m.transportOpts...)
	s.conn = transport.New(bus, log, opts...)

	rv, err := review.New(review.Config{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Defaults:      m.defaultSettings(),
		QueueCapacity: m.reviewCfg.QueueCapacity,
	}, review.Deps{
		Display:    s.conn,
		Flashcards: m.stores.Flashcards,
		Settings:   m.stores.Settings,
		Scheduler:  m.scheduler,
		Tasks:      lane,
		Logger:     log,
		Clock:      m.now,
	})
	if err != nil {
		lane.Close(ctx)
		return nil, fmt.Errorf("build review: %w", err)
	}
	s.review = rv

	// Saved settings are read before connecting so that settings pushed
	// with the handshake ack take precedence over them.
	if err := rv.LoadSettings(ctx); err != nil {
		log.Warn("using default review settings", "error", err)
	}
	rv.Attach(bus)
	return s, nil
}

// connectionEnded runs on the read loop when the cloud closes the
// connection or it fails.
func (m *Manager) connectionEnded(s *Session, state transport.State, err error) {
	if !m.registry.RemoveIf(s) {
		return
	}
	s.logger.Info("session removed after connection ended",
		"state", state.String(),
		"error", redact.Error(err),
		"active_sessions", m.registry.Len())
	s.close(context.Background())
}

// Stop tears a session down. Stopping an unknown session is not an error.
func (m *Manager) Stop(ctx context.Context, req StopRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
	}
	log := m.logger.With("session_id", req.SessionID, "user_id", req.UserID)

	observerErr := m.observer.OnStop(ctx, req)
	if observerErr != nil {
		log.Error("session observer failed on stop", "error", observerErr)
	}

	s, ok := m.registry.Remove(req.SessionID)
	if !ok {
		log.Warn("stop requested for unknown session", "reason", req.Reason)
	} else {
		s.close(ctx)
		log.Info("session stopped", "reason", req.Reason, "active_sessions", m.registry.Len())
	}

	if observerErr != nil {
		return fmt.Errorf("%w: %w", ErrObserverFailed, observerErr)
	}
	return nil
}

// ApplySettings forwards settings to every live session of userID and
// returns how many accepted them. A user without live sessions has the
// recognised keys merged into their saved settings instead, so the next
// session starts with them.
func (m *Manager) ApplySettings(ctx context.Context, userID string, settings []protocol.Setting) (int, error) {
	sessions := m.registry.ForUser(userID)
	if len(sessions) == 0 {
		return 0, m.saveSettings(ctx, userID, settings)
	}

	var (
		updated int
		errs    []error
	)
	for _, s := range sessions {
		if err := s.review.SubmitSettings(settings); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			continue
		}
		updated++
	}
	return updated, errors.Join(errs...)
}

func (m *Manager) saveSettings(ctx context.Context, userID string, settings []protocol.Setting) error {
	base := m.defaultSettings()
	saved, err := m.stores.Settings.Get(ctx, userID)
	switch {
	case err == nil:
		base = saved
	case !errors.Is(err, store.ErrSettingsNotFound):
		return fmt.Errorf("load saved settings: %w", err)
	}

	merged, err := domain.NewUserSettings(base)
	if err != nil {
		return fmt.Errorf("saved settings: %w", err)
	}
	log := m.logger.With("user_id", userID)
	review.MergeSettings(merged, settings, log)

	after := merged.Snapshot()
	if after == base {
		return nil
	}
	if err := m.stores.Settings.Upsert(ctx, userID, after); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	log.Info("saved settings for user without live sessions",
		"max_cards_per_session", after.MaxCardsPerSession,
		"desired_retention", after.DesiredRetention)
	return nil
}

func (m *Manager) defaultSettings() domain.Settings {
	return domain.Settings{
		MaxCardsPerSession: m.reviewCfg.DefaultMaxCards,
		DesiredRetention:   m.reviewCfg.DefaultRetention,
	}
}

// ToolCall forwards call to the observer.
func (m *Manager) ToolCall(ctx context.Context, call ToolCall) (string, error) {
	reply, err := m.observer.OnToolCall(ctx, call)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrObserverFailed, err)
	}
	return reply, nil
}

// Shutdown stops every live session.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, s := range m.registry.All() {
		if m.registry.RemoveIf(s) {
			s.close(ctx)
		}
	}
	m.logger.Info("all sessions closed")
}
