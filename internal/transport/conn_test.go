package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-live/internal/events"
	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/protocol"
)

const (
	testSessionID   = "session-123"
	testPackageName = "com.example.flashcards"
	testAPIKey      = "test-api-key"
	waitTimeout     = 2 * time.Second
)

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// fakeCloud is a websocket endpoint that refuses the first refuse upgrade
// attempts (all of them when refuse is negative) and records when each
// attempt arrived.
type fakeCloud struct {
	srv    *httptest.Server
	refuse int

	mu       sync.Mutex
	attempts []time.Time

	peers chan *peer
}

// peer is the server side of one accepted connection.
type peer struct {
	ws     *websocket.Conn
	frames chan []byte
	pongs  chan string
	ended  chan error
}

func newFakeCloud(t *testing.T, refuse int) *fakeCloud {
	t.Helper()
	fc := &fakeCloud{refuse: refuse, peers: make(chan *peer, 4)}
	upgrader := websocket.Upgrader{}

	fc.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fc.mu.Lock()
		fc.attempts = append(fc.attempts, time.Now())
		n := len(fc.attempts)
		fc.mu.Unlock()

		if fc.refuse < 0 || n <= fc.refuse {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		p := &peer{
			ws:     ws,
			frames: make(chan []byte, 16),
			pongs:  make(chan string, 1),
			ended:  make(chan error, 1),
		}
		ws.SetPongHandler(func(appData string) error {
			p.pongs <- appData
			return nil
		})
		go func() {
			for {
				_, data, err := ws.ReadMessage()
				if err != nil {
					p.ended <- err
					return
				}
				p.frames <- data
			}
		}()
		fc.peers <- p
	}))
	t.Cleanup(fc.srv.Close)
	return fc
}

func (fc *fakeCloud) url() string {
	return "ws" + strings.TrimPrefix(fc.srv.URL, "http")
}

func (fc *fakeCloud) attemptTimes() []time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]time.Time(nil), fc.attempts...)
}

func (fc *fakeCloud) accept(t *testing.T) *peer {
	t.Helper()
	select {
	case p := <-fc.peers:
		t.Cleanup(func() { _ = p.ws.Close() })
		return p
	case <-time.After(waitTimeout):
		t.Fatal("no connection accepted")
		return nil
	}
}

func (p *peer) nextFrame(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-p.frames:
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(waitTimeout):
		t.Fatal("no frame received")
		return nil
	}
}

func (p *peer) send(t *testing.T, frame string) {
	t.Helper()
	require.NoError(t, p.ws.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func testInit() protocol.ConnectionInit {
	return protocol.NewConnectionInit(testSessionID, testPackageName, testAPIKey, testTime)
}

func newTestConn(bus *events.Bus, opts ...Option) *Conn {
	base := []Option{
		WithRetryBase(20 * time.Millisecond),
		WithWriteTimeout(time.Second),
		WithClock(func() time.Time { return testTime }),
	}
	return New(bus, logger.Discard(), append(base, opts...)...)
}

// connect opens a Conn to fc and consumes the handshake frame.
func connect(t *testing.T, fc *fakeCloud, bus *events.Bus, opts ...Option) (*Conn, *peer) {
	t.Helper()
	c := newTestConn(bus, opts...)
	require.NoError(t, c.Connect(context.Background(), fc.url(), testInit()))
	t.Cleanup(func() { _ = c.Close() })
	p := fc.accept(t)
	handshake := p.nextFrame(t)
	require.Equal(t, protocol.TypeConnectionInit, handshake["type"])
	return c, p
}

func TestConnectRejectsInvalidURL(t *testing.T) {
	fc := newFakeCloud(t, 0)
	host := strings.TrimPrefix(fc.srv.URL, "http://")

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"http scheme", "http://" + host},
		{"no scheme", host},
		{"no host", "ws://"},
		{"unparseable", "ws://%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConn(events.NewBus(logger.Discard()))
			err := c.Connect(context.Background(), tt.url, testInit())
			assert.ErrorIs(t, err, ErrInvalidURL)
			assert.Equal(t, StateDisconnected, c.State())
		})
	}
	assert.Empty(t, fc.attemptTimes(), "invalid urls must not reach the network")
}

func TestConnectExhaustsAttempts(t *testing.T) {
	fc := newFakeCloud(t, -1)
	c := newTestConn(events.NewBus(logger.Discard()), WithRetryBase(40*time.Millisecond))

	err := c.Connect(context.Background(), fc.url(), testInit())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, StateFailed, c.State())

	attempts := fc.attemptTimes()
	require.Len(t, attempts, 3)
	first := attempts[1].Sub(attempts[0])
	second := attempts[2].Sub(attempts[1])
	assert.GreaterOrEqual(t, first, 40*time.Millisecond)
	assert.GreaterOrEqual(t, second, 80*time.Millisecond)
	assert.Greater(t, second, first)

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed after a failed connect")
	}
}

func TestConnectStopsRetryingAfterSuccess(t *testing.T) {
	fc := newFakeCloud(t, 1)
	c, _ := connect(t, fc, events.NewBus(logger.Discard()))

	assert.Equal(t, StateConnected, c.State())
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, fc.attemptTimes(), 2)
}

func TestConnectTwice(t *testing.T) {
	fc := newFakeCloud(t, 0)
	c, _ := connect(t, fc, events.NewBus(logger.Discard()))

	err := c.Connect(context.Background(), fc.url(), testInit())
	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, StateConnected, c.State())
}

func TestHandshakeFrame(t *testing.T) {
	fc := newFakeCloud(t, 0)
	c := newTestConn(events.NewBus(logger.Discard()))
	require.NoError(t, c.Connect(context.Background(), fc.url(), testInit()))
	t.Cleanup(func() { _ = c.Close() })

	p := fc.accept(t)
	frame := p.nextFrame(t)

	assert.Equal(t, map[string]any{
		"type":        "tpa_connection_init",
		"sessionId":   testSessionID,
		"packageName": testPackageName,
		"apiKey":      testAPIKey,
		"timestamp":   "2025-01-02T03:04:05Z",
	}, frame)
}

func TestInboundFramesArePublished(t *testing.T) {
	fc := newFakeCloud(t, 0)
	bus := events.NewBus(logger.Discard())

	transcripts := make(chan protocol.TranscriptionData, 1)
	bus.OnStream(protocol.StreamTranscription, func(_ context.Context, ev events.Event) error {
		transcripts <- ev.Payload.(protocol.TranscriptionData)
		return nil
	})
	acks := make(chan protocol.ConnectionAck, 1)
	bus.OnSystem(protocol.SystemConnected, func(_ context.Context, ev events.Event) error {
		acks <- ev.Payload.(protocol.ConnectionAck)
		return nil
	})
	unhandled := make(chan protocol.Unknown, 1)
	bus.OnSystem(protocol.SystemUnhandled, func(_ context.Context, ev events.Event) error {
		unhandled <- ev.Payload.(protocol.Unknown)
		return nil
	})

	_, p := connect(t, fc, bus)

	// Bad frames in between must not stop the loop.
	p.send(t, `{not json`)
	p.send(t, `{"type":"data_stream","streamType":"transcription"}`)
	require.NoError(t, p.ws.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))

	p.send(t, `{"type":"data_stream","streamType":"transcription:en-US","data":{"text":"start","isFinal":true,"startTime":1,"endTime":2}}`)
	p.send(t, `{"type":"tpa_connection_ack","settings":[]}`)
	p.send(t, `{"type":"brand_new_frame","x":1}`)

	select {
	case got := <-transcripts:
		assert.Equal(t, "start", got.Text)
		assert.True(t, got.IsFinal)
	case <-time.After(waitTimeout):
		t.Fatal("transcription not published")
	}
	select {
	case got := <-acks:
		assert.Equal(t, protocol.TypeConnectionAckLegacy, got.Type)
	case <-time.After(waitTimeout):
		t.Fatal("connection ack not published")
	}
	select {
	case got := <-unhandled:
		assert.Equal(t, "brand_new_frame", got.Type)
	case <-time.After(waitTimeout):
		t.Fatal("unknown frame not published")
	}
}

func TestHandlerFailureDoesNotStopReadLoop(t *testing.T) {
	fc := newFakeCloud(t, 0)
	bus := events.NewBus(logger.Discard())

	seen := make(chan string, 2)
	bus.OnStream(protocol.StreamButtonPress, func(_ context.Context, ev events.Event) error {
		id := ev.Payload.(protocol.ButtonPressData).ButtonID
		seen <- id
		if id == "first" {
			panic("handler bug")
		}
		return nil
	})

	_, p := connect(t, fc, bus)
	p.send(t, `{"type":"data_stream","streamType":"button_press","data":{"buttonId":"first"}}`)
	p.send(t, `{"type":"data_stream","streamType":"button_press","data":{"buttonId":"second"}}`)

	for _, want := range []string{"first", "second"} {
		select {
		case got := <-seen:
			assert.Equal(t, want, got)
		case <-time.After(waitTimeout):
			t.Fatalf("button press %q not published", want)
		}
	}
}

func TestSendRequiresConnection(t *testing.T) {
	c := newTestConn(events.NewBus(logger.Discard()))

	assert.ErrorIs(t, c.Subscribe([]string{protocol.StreamButtonPress}), ErrNotConnected)
	assert.ErrorIs(t, c.SendDisplay(protocol.ShowText("hello")), ErrNotConnected)
	assert.NoError(t, c.Close())
}

func TestSubscribe(t *testing.T) {
	fc := newFakeCloud(t, 0)
	c, p := connect(t, fc, events.NewBus(logger.Discard()))

	require.NoError(t, c.Subscribe([]string{"transcription:en-US", protocol.StreamButtonPress}))

	frame := p.nextFrame(t)
	assert.Equal(t, protocol.TypeSubscriptionUpdate, frame["type"])
	assert.Equal(t, testSessionID, frame["sessionId"])
	assert.Equal(t, testPackageName, frame["packageName"])
	assert.Equal(t, []any{"transcription:en-US", "button_press"}, frame["subscriptions"])
}

func TestSendDisplay(t *testing.T) {
	fc := newFakeCloud(t, 0)
	log, buf := logger.NewTestLogger(t)
	bus := events.NewBus(logger.Discard())
	c := New(bus, log, WithClock(func() time.Time { return testTime }))
	require.NoError(t, c.Connect(context.Background(), fc.url(), testInit()))
	t.Cleanup(func() { _ = c.Close() })
	p := fc.accept(t)
	p.nextFrame(t)

	require.NoError(t, c.SendDisplay(protocol.ShowDoubleText("front", "Deck (2 left)")))
	frame := p.nextFrame(t)
	assert.Equal(t, protocol.TypeDisplayEvent, frame["type"])
	assert.Equal(t, "main", frame["view"])
	assert.Equal(t, map[string]any{
		"layoutType": "double_text_wall",
		"topText":    "front",
		"bottomText": "Deck (2 left)",
	}, frame["layout"])
	assert.NotContains(t, frame, "durationMs")

	long := protocol.ShowText(strings.Repeat("x", protocol.MaxTextWallLength+1))
	require.NoError(t, c.SendDisplay(long))
	p.nextFrame(t)
	logger.AssertLogContains(t, buf, "text wall exceeds display limit")
}

func TestFramesKeepSendOrder(t *testing.T) {
	fc := newFakeCloud(t, 0)
	c, p := connect(t, fc, events.NewBus(logger.Discard()))

	for i := 0; i < 10; i++ {
		require.NoError(t, c.SendDisplay(protocol.ShowText(strings.Repeat("a", i+1))))
	}
	for i := 0; i < 10; i++ {
		frame := p.nextFrame(t)
		layout := frame["layout"].(map[string]any)
		assert.Equal(t, strings.Repeat("a", i+1), layout["text"])
	}
}

func TestPingIsAnswered(t *testing.T) {
	fc := newFakeCloud(t, 0)
	_, p := connect(t, fc, events.NewBus(logger.Discard()))

	require.NoError(t, p.ws.WriteControl(websocket.PingMessage, []byte("are-you-there"), time.Now().Add(time.Second)))

	select {
	case got := <-p.pongs:
		assert.Equal(t, "are-you-there", got)
	case <-time.After(waitTimeout):
		t.Fatal("no pong received")
	}
}

func TestCloseSendsNormalClosure(t *testing.T) {
	fc := newFakeCloud(t, 0)
	hookCalled := make(chan State, 1)
	c, p := connect(t, fc, events.NewBus(logger.Discard()), WithCloseHook(func(s State, _ error) { hookCalled <- s }))

	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())

	select {
	case err := <-p.ended:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	case <-time.After(waitTimeout):
		t.Fatal("peer did not see a close frame")
	}

	assert.ErrorIs(t, c.Subscribe(nil), ErrNotConnected)
	assert.NoError(t, c.Close(), "second close is a no-op")
	select {
	case s := <-hookCalled:
		t.Fatalf("close hook called with %s on local close", s)
	default:
	}
}

func TestPeerCloseFiresHook(t *testing.T) {
	tests := []struct {
		name  string
		end   func(p *peer)
		state State
	}{
		{
			name: "close frame",
			end: func(p *peer) {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
				_ = p.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			},
			state: StateClosed,
		},
		{
			name:  "dropped connection",
			end:   func(p *peer) { _ = p.ws.UnderlyingConn().Close() },
			state: StateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeCloud(t, 0)
			hook := make(chan State, 1)
			c, p := connect(t, fc, events.NewBus(logger.Discard()), WithCloseHook(func(s State, _ error) { hook <- s }))

			tt.end(p)

			select {
			case s := <-hook:
				assert.Equal(t, tt.state, s)
			case <-time.After(waitTimeout):
				t.Fatal("close hook not called")
			}
			<-c.Done()
			assert.Equal(t, tt.state, c.State())
			assert.ErrorIs(t, c.SendDisplay(protocol.ShowText("late")), ErrNotConnected)
		})
	}
}
