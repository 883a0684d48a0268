package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/domain/srs"
	"github.com/phrazzld/scry-live/internal/protocol"
	"github.com/phrazzld/scry-live/internal/store"
	"github.com/phrazzld/scry-live/internal/task"
)

// TranscriptionStream is the language-qualified transcription stream the
// session listens to.
const TranscriptionStream = protocol.StreamTranscription + ":en-US"

// SubscribedStreams are requested from the cloud once the queue has been
// announced.
var SubscribedStreams = []string{
	TranscriptionStream,
	protocol.StreamButtonPress,
	protocol.StreamHeadPosition,
}

// Display is where a session shows text and asks for streams. It is
// satisfied by *transport.Conn.
type Display interface {
	SendDisplay(req protocol.DisplayRequest) error
	Subscribe(streams []string) error
}

// Config identifies a session and sets its starting point.
type Config struct {
	SessionID string
	UserID    string

	// Defaults apply until the user's saved or pushed settings arrive.
	Defaults domain.Settings

	// QueueCapacity bounds the card queue; zero means DefaultQueueCapacity.
	QueueCapacity int
}

// Deps are the collaborators a session needs.
type Deps struct {
	Display    Display
	Flashcards store.FlashcardStore
	Settings   store.SettingsStore
	Scheduler  srs.Service

	// Tasks runs follow-on work. Handlers never touch the store or the
	// display themselves.
	Tasks task.Submitter

	Logger *slog.Logger
	Clock  func() time.Time
}

// Session is one live review. It starts NotStarted, moves to Active on
// "start" and stays Active until it is closed; an exhausted queue only
// re-announces completion.
type Session struct {
	id     string
	userID string

	display       Display
	flashcards    store.FlashcardStore
	settingsStore store.SettingsStore
	scheduler     srs.Service
	tasks         task.Submitter
	logger        *slog.Logger
	now           func() time.Time

	settings    *domain.UserSettings
	queue       *Queue
	started     atomic.Bool
	initialized atomic.Bool

	mu      sync.Mutex
	current *domain.DueCard

	detachMu sync.Mutex
	detach   []func()
}

// New builds a session. It performs no I/O.
func New(cfg Config, deps Deps) (*Session, error) {
	switch {
	case deps.Display == nil:
		return nil, fmt.Errorf("%w: display", ErrMissingDependency)
	case deps.Flashcards == nil:
		return nil, fmt.Errorf("%w: flashcard store", ErrMissingDependency)
	case deps.Settings == nil:
		return nil, fmt.Errorf("%w: settings store", ErrMissingDependency)
	case deps.Scheduler == nil:
		return nil, fmt.Errorf("%w: scheduler", ErrMissingDependency)
	case deps.Tasks == nil:
		return nil, fmt.Errorf("%w: task submitter", ErrMissingDependency)
	}

	settings, err := domain.NewUserSettings(cfg.Defaults)
	if err != nil {
		return nil, fmt.Errorf("default settings: %w", err)
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	return &Session{
		id:            cfg.SessionID,
		userID:        cfg.UserID,
		display:       deps.Display,
		flashcards:    deps.Flashcards,
		settingsStore: deps.Settings,
		scheduler:     deps.Scheduler,
		tasks:         deps.Tasks,
		logger:        log.With("component", "review", "session_id", cfg.SessionID),
		now:           now,
		settings:      settings,
		queue:         NewQueue(cfg.QueueCapacity),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the identity being reviewed.
func (s *Session) UserID() string { return s.userID }

// Started reports whether "start" has been heard.
func (s *Session) Started() bool { return s.started.Load() }

// Remaining returns the number of cards still queued behind the current one.
func (s *Session) Remaining() int { return s.queue.Len() }

// Settings returns the live settings.
func (s *Session) Settings() domain.Settings { return s.settings.Snapshot() }

// Current returns the card on display, if any.
func (s *Session) Current() (domain.DueCard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.DueCard{}, false
	}
	return *s.current, true
}

func (s *Session) setCurrent(card *domain.DueCard) {
	s.mu.Lock()
	s.current = card
	s.mu.Unlock()
}

func (s *Session) takeCurrent() *domain.DueCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	card := s.current
	s.current = nil
	return card
}

// LoadSettings replaces the defaults with the user's saved settings. Having
// none saved is not an error.
func (s *Session) LoadSettings(ctx context.Context) error {
	saved, err := s.settingsStore.Get(ctx, s.userID)
	if errors.Is(err, store.ErrSettingsNotFound) {
		s.logger.Debug("no saved settings, using defaults")
		return nil
	}
	if err != nil {
		return opError("load_settings", "failed to read saved settings", err)
	}
	if err := s.settings.SetMaxCardsPerSession(saved.MaxCardsPerSession); err != nil {
		return opError("load_settings", "saved settings are invalid", err)
	}
	if err := s.settings.SetDesiredRetention(saved.DesiredRetention); err != nil {
		return opError("load_settings", "saved settings are invalid", err)
	}
	return nil
}

// Start schedules Init on the session's task submitter.
func (s *Session) Start() error {
	return s.tasks.Submit(task.TypeReviewInit, s.Init)
}

// Init loads the due cards, announces how many there are and subscribes to
// the command streams.
func (s *Session) Init(ctx context.Context) error {
	n, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.initialized.Store(true)
	s.logger.Info("review queue loaded", "cards", n, "user_id", s.userID)

	if err := s.show(protocol.ShowText(announcement(n))); err != nil {
		return err
	}
	if err := s.display.Subscribe(SubscribedStreams); err != nil {
		return opError("subscribe", "failed to request command streams", err)
	}
	return nil
}

func (s *Session) load(ctx context.Context) (int, error) {
	limit := s.settings.MaxCardsPerSession()
	cards, err := s.flashcards.ListDue(ctx, s.userID, s.now(), limit)
	if err != nil {
		return 0, opError("load_queue", "failed to list due cards", err)
	}
	if dropped := s.queue.Replace(cards); dropped > 0 {
		s.logger.Warn("review queue over capacity", "dropped", dropped, "capacity", s.queue.Cap())
	}
	return s.queue.Len(), nil
}

// HandleTranscription interprets one final transcription.
func (s *Session) HandleTranscription(ctx context.Context, text string) error {
	cmd := Interpret(text, s.started.Load())
	switch cmd.Kind {
	case CommandStart:
		if !s.started.CompareAndSwap(false, true) {
			return nil
		}
		s.logger.Info("review started", "queued", s.queue.Len())
		return s.advance()
	case CommandReveal:
		return s.Reveal(ctx)
	case CommandRate:
		return s.Rate(ctx, cmd.Rating)
	default:
		return nil
	}
}

// Reveal shows the front and back of the card on display. It does nothing
// when no card is on display.
func (s *Session) Reveal(_ context.Context) error {
	card, ok := s.Current()
	if !ok {
		s.logger.Debug("reveal ignored", "reason", ErrNoCurrentCard)
		return nil
	}
	return s.show(protocol.ShowDoubleText(card.Front, card.Back))
}

// Rate records rating for the card on display and moves on. A card whose
// review cannot be computed or saved is logged and dropped from the session;
// it stays due in the store.
func (s *Session) Rate(ctx context.Context, rating domain.Rating) error {
	if !s.started.Load() {
		return nil
	}
	if card := s.takeCurrent(); card != nil {
		s.persist(ctx, card, rating)
	}
	return s.advance()
}

func (s *Session) persist(ctx context.Context, card *domain.DueCard, rating domain.Rating) {
	log := s.logger.With("card_id", card.ID, "rating", rating)

	update, err := s.scheduler.ComputeNext(&card.Flashcard, rating, s.settings.DesiredRetention())
	if err != nil {
		log.Error("failed to compute next review", "error", err)
		return
	}
	if err := s.flashcards.UpdateReview(ctx, s.userID, *update); err != nil {
		log.Error("failed to save review", "error", err)
		return
	}
	log.Debug("review saved", "scheduled_at", update.ScheduledAt)
}

// advance puts the next queued card on display, or the completion message
// when the queue is empty.
func (s *Session) advance() error {
	next, ok := s.queue.Pop()
	if !ok {
		s.setCurrent(nil)
		return s.show(protocol.ShowText(textAllReviewed))
	}
	s.setCurrent(&next)
	return s.show(protocol.ShowDoubleText(next.Front, progress(next.DeckName, s.queue.Len())))
}

// ApplySettings applies the recognised keys among settings. Unknown keys
// and out-of-range values are skipped with a warning. A change is saved
// for the user and, while the review has not started, reloads the queue
// when its length no longer matches the card limit.
func (s *Session) ApplySettings(ctx context.Context, settings []protocol.Setting) error {
	before := s.settings.Snapshot()
	MergeSettings(s.settings, settings, s.logger)

	after := s.settings.Snapshot()
	if after == before {
		return nil
	}
	s.logger.Info("review settings changed",
		"max_cards_per_session", after.MaxCardsPerSession,
		"desired_retention", after.DesiredRetention)

	if err := s.settingsStore.Upsert(ctx, s.userID, after); err != nil {
		s.logger.Error("failed to save settings", "error", err)
	}

	if s.needsRequeue() {
		return s.tasks.Submit(task.TypeReviewRequeue, s.requeue)
	}
	return nil
}

// MergeSettings sets the recognised keys among settings on u. Unknown keys
// and out-of-range values are skipped.
func MergeSettings(u *domain.UserSettings, settings []protocol.Setting, log *slog.Logger) {
	for _, setting := range settings {
		switch setting.Key {
		case domain.SettingMaxCardsPerSession:
			applySetting(log, setting, u.SetMaxCardsPerSession)
		case domain.SettingDesiredRetention:
			applySetting(log, setting, u.SetDesiredRetention)
		default:
			log.Debug("ignoring unknown setting", "key", setting.Key)
		}
	}
}

func applySetting(log *slog.Logger, setting protocol.Setting, set func(int) error) {
	v, err := setting.Int()
	if err == nil {
		err = set(v)
	}
	if err != nil {
		log.Warn("ignoring setting", "key", setting.Key, "error", err)
	}
}

func (s *Session) needsRequeue() bool {
	return s.initialized.Load() &&
		!s.started.Load() &&
		s.queue.Len() != s.settings.MaxCardsPerSession()
}

// requeue reloads the queue with the current limit and announces it again.
// It re-checks its precondition because "start" may have been heard since
// it was scheduled.
func (s *Session) requeue(ctx context.Context) error {
	if !s.needsRequeue() {
		return nil
	}
	n, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("review queue reloaded", "cards", n)
	return s.show(protocol.ShowText(announcement(n)))
}

func (s *Session) show(req protocol.DisplayRequest) error {
	if err := s.display.SendDisplay(req); err != nil {
		return opError("display", "failed to update glasses", err)
	}
	return nil
}
