package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/scry-live/internal/events"
	"github.com/phrazzld/scry-live/internal/review"
	"github.com/phrazzld/scry-live/internal/task"
	"github.com/phrazzld/scry-live/internal/transport"
)

// SessionRequest asks the app to join a user's session.
type SessionRequest struct {
	SessionID    string
	UserID       string
	WebsocketURL string
}

// StopRequest asks the app to leave a session.
type StopRequest struct {
	SessionID string
	UserID    string
	Reason    string
}

// Session is one live connection to the cloud together with the review it
// drives.
type Session struct {
	ID          string
	UserID      string
	PackageName string
	StartedAt   time.Time

	bus    *events.Bus
	conn   *transport.Conn
	lane   *task.Lane
	review *review.Session
	logger *slog.Logger

	closeOnce sync.Once
}

// Connected reports whether the connection is still up.
func (s *Session) Connected() bool {
	return s.conn.State() == transport.StateConnected
}

// State returns the connection state.
func (s *Session) State() transport.State {
	return s.conn.State()
}

// Streams returns the stream tags the session's handlers listen on.
func (s *Session) Streams() []string {
	return s.bus.ActiveStreams()
}

// Review returns the review the session drives.
func (s *Session) Review() *review.Session {
	return s.review
}

// laneDrainTimeout bounds how long close waits for queued review work.
const laneDrainTimeout = 5 * time.Second

// close detaches the review, closes the connection and drains the lane.
func (s *Session) close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.review.Close()
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("failed to close websocket cleanly", "error", err)
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), laneDrainTimeout)
		defer cancel()
		s.lane.Close(ctx)
	})
}
