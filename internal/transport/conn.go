package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/phrazzld/scry-live/internal/events"
	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/protocol"
	"github.com/phrazzld/scry-live/internal/redact"
)

// Conn is one session's websocket connection to the cloud.
//
// All writes go through writeMu so the handshake, subscription updates and
// display events leave in the order they were issued. Exactly one read loop
// runs per connection and it is the only publisher onto the bus.
type Conn struct {
	publisher events.Publisher
	logger    *slog.Logger
	dialer    *websocket.Dialer
	now       func() time.Time
	onClose   CloseHook

	maxAttempts  int
	retryBase    time.Duration
	writeTimeout time.Duration

	state atomic.Int32

	// Set once by Connect before the state becomes StateConnected.
	ws          *websocket.Conn
	sessionID   string
	packageName string
	done        chan struct{}

	writeMu sync.Mutex
}

// New creates a disconnected Conn that publishes inbound messages to p.
func New(p events.Publisher, log *slog.Logger, opts ...Option) *Conn {
	if log == nil {
		log = slog.Default()
	}
	c := &Conn{
		publisher: p,
		logger:    log.With("component", "transport"),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		now:          time.Now,
		maxAttempts:  DefaultMaxAttempts,
		retryBase:    DefaultRetryBase,
		writeTimeout: DefaultWriteTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Done is closed when the read loop has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// ValidateURL reports whether rawURL is an absolute ws or wss URL and
// returns it parsed.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme %q is not ws or wss", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// Connect dials rawURL, sends init as the handshake and starts the read
// loop. The URL is validated before any network attempt. Dialing is retried
// with linear backoff up to the configured number of attempts; when all of
// them fail the returned error wraps ErrConnectFailed and the last dial
// error, and the Conn is left in StateFailed.
func (c *Conn) Connect(ctx context.Context, rawURL string, init protocol.ConnectionInit) error {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return err
	}

	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return fmt.Errorf("%w: connect called while %s", ErrConnectFailed, c.State())
	}

	log := c.logger.With("session_id", init.SessionID, "host", u.Host)

	attempt := 0
	var ws *websocket.Conn
	err = retry.Do(ctx, connectBackoff(c.maxAttempts, c.retryBase), func(ctx context.Context) error {
		attempt++
		conn, _, dialErr := c.dialer.DialContext(ctx, u.String(), nil)
		if dialErr != nil {
			log.Warn("websocket connection attempt failed",
				"attempt", attempt,
				"max_attempts", c.maxAttempts,
				"error", redact.Error(dialErr))
			return retry.RetryableError(dialErr)
		}
		ws = conn
		return nil
	})
	if err != nil {
		c.state.Store(int32(StateFailed))
		close(c.done)
		return fmt.Errorf("%w after %d attempts: %w", ErrConnectFailed, attempt, err)
	}

	c.ws = ws
	c.sessionID = init.SessionID
	c.packageName = init.PackageName
	ws.SetPingHandler(func(appData string) error {
		log.Debug("answering ping")
		err := ws.WriteControl(websocket.PongMessage, []byte(appData), c.now().Add(c.writeTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	if err := c.write(init); err != nil {
		_ = ws.Close()
		c.state.Store(int32(StateFailed))
		close(c.done)
		return fmt.Errorf("%w: handshake: %w", ErrConnectFailed, err)
	}

	c.state.Store(int32(StateConnected))
	log.Info("websocket connected", "attempts", attempt)

	readCtx := logger.WithLogger(context.Background(), log)
	go c.readLoop(readCtx, ws, log)
	return nil
}

// Subscribe replaces the set of streams the cloud pushes for this session.
func (c *Conn) Subscribe(streams []string) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	return c.send(protocol.NewSubscriptionUpdate(c.packageName, c.sessionID, streams, c.now()))
}

// SendDisplay shows req on the user's glasses.
func (c *Conn) SendDisplay(req protocol.DisplayRequest) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	if req.Oversized() {
		c.logger.Warn("text wall exceeds display limit",
			"session_id", c.sessionID,
			"limit", protocol.MaxTextWallLength)
	}
	return c.send(req.Event(c.packageName, c.sessionID, c.now()))
}

// Close sends a normal-closure frame, waits briefly for the peer to answer
// and releases the connection. Closing a Conn that is not connected is a
// no-op. The close hook is not called.
func (c *Conn) Close() error {
	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateClosed)) {
		return nil
	}

	c.writeMu.Lock()
	err := c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		c.now().Add(c.writeTimeout))
	c.writeMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(c.writeTimeout):
		c.logger.Debug("peer did not answer close frame", "session_id", c.sessionID)
	}
	_ = c.ws.Close()

	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("%w: close frame: %w", ErrSendFailed, err)
	}
	c.logger.Info("websocket closed", "session_id", c.sessionID)
	return nil
}

func (c *Conn) send(v any) error {
	if err := c.write(v); err != nil {
		if c.State() != StateConnected {
			return ErrNotConnected
		}
		return err
	}
	return nil
}

// write serialises v and writes it as one text frame.
func (c *Conn) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(c.now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// readLoop decodes frames and publishes them until the connection ends.
// A frame that fails to decode is logged and skipped.
func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn, log *slog.Logger) {
	defer close(c.done)

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			c.finish(ws, log, err)
			return
		}

		if kind != websocket.TextMessage {
			log.Debug("skipping non-text frame", "frame_kind", kind, "bytes", len(data))
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			log.Warn("skipping undecodable frame", "error", err, "bytes", len(data))
			continue
		}
		if u, ok := msg.(protocol.Unknown); ok {
			log.Debug("unrecognised frame type", "frame_type", u.Type)
		}

		if err := protocol.Publish(ctx, c.publisher, msg); err != nil {
			log.Debug("event handlers reported an error", "frame_type", msg.FrameType(), "error", err)
		}
	}
}

// finish records why the read loop ended. When the connection was closed
// locally the state is already StateClosed and nothing else happens.
func (c *Conn) finish(ws *websocket.Conn, log *slog.Logger, err error) {
	next := StateFailed
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		next = StateClosed
	}
	if !c.state.CompareAndSwap(int32(StateConnected), int32(next)) {
		return
	}
	_ = ws.Close()

	if next == StateClosed {
		log.Info("websocket closed by peer")
	} else {
		log.Warn("websocket read failed", "error", redact.Error(err))
	}
	if c.onClose != nil {
		c.onClose(next, err)
	}
}
