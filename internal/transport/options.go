package transport

import (
	"time"

	"github.com/phrazzld/scry-live/internal/config"
)

// Defaults used when no option overrides them.
const (
	DefaultMaxAttempts      = 3
	DefaultRetryBase        = time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

// CloseHook is called once when the remote side ends a connection that was
// open. state is StateClosed for a close frame and StateFailed otherwise.
// It is not called when the connection is closed locally.
type CloseHook func(state State, err error)

// Option configures a Conn.
type Option func(*Conn)

// WithMaxAttempts bounds how many times Connect dials.
func WithMaxAttempts(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBase sets the unit of the linear backoff; attempt n waits
// n*base before the next dial.
func WithRetryBase(d time.Duration) Option {
	return func(c *Conn) {
		if d >= 0 {
			c.retryBase = d
		}
	}
}

// WithHandshakeTimeout bounds each websocket dial, including the HTTP
// upgrade. Non-positive values keep the default.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

// WithWriteTimeout sets the deadline for writing one outbound frame.
// Non-positive values keep the default.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithCloseHook registers the hook called when the remote ends the connection.
func WithCloseHook(h CloseHook) Option {
	return func(c *Conn) { c.onClose = h }
}

// WithClock replaces the time source used for frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Conn) { c.now = now }
}

// OptionsFromConfig translates transport configuration into options.
func OptionsFromConfig(cfg config.TransportConfig) []Option {
	return []Option{
		WithMaxAttempts(cfg.MaxAttempts),
		WithRetryBase(cfg.RetryBase),
		WithHandshakeTimeout(cfg.HandshakeTimeout),
		WithWriteTimeout(cfg.WriteTimeout),
	}
}
