package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/loop"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	DefaultReconnectDelay = 500 * time.Millisecond
	DefaultDebounce       = 300 * time.Millisecond

	// DefaultPingWait allows for one missed server ping (sent every 30s)
	DefaultPingWait = 40 * time.Second

	writeWait = 10 * time.Second
)

// State is the connection state of the bridge
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Conn is the part of *websocket.Conn the bridge uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
	SetPingHandler(h func(appData string) error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer opens the event channel
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, header http.Header) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket
type WebsocketDialer struct {
	Dialer *websocket.Dialer
}

// DialContext implements Dialer
func (d WebsocketDialer) DialContext(ctx context.Context, urlStr string, header http.Header) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, urlStr, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", urlStr, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", urlStr, err)
	}
	return conn, nil
}

// EndpointURL returns the event channel URL of a console. The scheme
// follows the console's: https gives wss.
func EndpointURL(base *url.URL, csrfToken string) string {
	u := url.URL{Scheme: "ws", Host: base.Host, Path: "/event"}
	if base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.RawQuery = url.Values{"csrf_token": {csrfToken}}.Encode()
	return u.String()
}

// Config configures a Bridge
type Config struct {
	// URL of the event channel, see EndpointURL
	URL string
	// Header is sent with the handshake. It carries the session cookie.
	Header http.Header

	ReconnectDelay time.Duration
	Debounce       time.Duration
	PingWait       time.Duration

	Dialer Dialer

	// Now is the clock the debounce window is measured with. Defaults to
	// time.Now.
	Now func() time.Time

	// OnStateChange is called after every state transition, from the loop
	// or from Run's goroutine.
	OnStateChange func(s State, reason string)
}

// frame is a server push message. Only data is used.
type frame struct {
	Data json.RawMessage `json:"data"`
}

type pending struct {
	action    action.Action
	timer     loop.Timer
	seen      time.Time
	delivered bool
}

// Bridge turns server push frames into actions on the event bus. Identical
// payloads arriving within the debounce window are delivered once.
type Bridge struct {
	cfg   Config
	sched loop.Scheduler
	bus   *dispatcher.Dispatcher

	state atomic.Int32

	// Loop confined
	ctx       context.Context
	pending   map[uint64]*pending
	reconnect loop.Timer

	connMu sync.Mutex
	conn   Conn

	logger zerolog.Logger
}

// New creates a bridge delivering to bus. Nothing is dialed until Run.
func New(cfg Config, sched loop.Scheduler, bus *dispatcher.Dispatcher) *Bridge {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.PingWait <= 0 {
		cfg.PingWait = DefaultPingWait
	}
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Bridge{
		cfg:     cfg,
		sched:   sched,
		bus:     bus,
		ctx:     context.Background(),
		pending: make(map[uint64]*pending),
		logger:  log.WithComponent("event"),
	}
}

// State returns the connection state
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// Run connects and keeps reconnecting until ctx is done
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.sched.Do(ctx, func() {
		b.ctx = ctx
		b.connect()
	}); err != nil {
		return err
	}

	<-ctx.Done()

	b.closeConn()
	// The loop may already be gone, nothing left to clean then
	_ = b.sched.Do(context.Background(), b.shutdown)
	b.setState(StateDisconnected, "stopped")
	return nil
}

// connect runs on the loop
func (b *Bridge) connect() {
	if b.ctx.Err() != nil {
		return
	}
	b.setState(StateConnecting, "connecting")
	b.logger.Debug().Msg("Connecting to event channel")

	ctx := b.ctx
	go b.dial(ctx)
}

func (b *Bridge) dial(ctx context.Context) {
	conn, err := b.cfg.Dialer.DialContext(ctx, b.cfg.URL, b.cfg.Header)
	if err != nil {
		b.sched.Post(func() { b.closed(err) })
		return
	}

	b.connMu.Lock()
	if ctx.Err() != nil {
		b.connMu.Unlock()
		_ = conn.Close()
		return
	}
	b.conn = conn
	b.connMu.Unlock()

	_ = conn.SetReadDeadline(time.Now().Add(b.cfg.PingWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(b.cfg.PingWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	b.sched.Post(func() {
		b.setState(StateConnected, "")
		b.logger.Info().Msg("Event channel connected")
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			b.sched.Post(func() { b.closed(err) })
			return
		}
		b.sched.Post(func() { b.receive(data) })
	}
}

// closed runs on the loop once per failed dial or dropped connection
func (b *Bridge) closed(err error) {
	b.connMu.Lock()
	b.conn = nil
	b.connMu.Unlock()

	if b.ctx.Err() != nil {
		b.setState(StateDisconnected, "stopped")
		return
	}

	b.setState(StateDisconnected, err.Error())
	b.logger.Warn().Err(err).
		Dur("retry_in", b.cfg.ReconnectDelay).
		Msg("Event channel closed")
	b.scheduleReconnect()
}

func (b *Bridge) scheduleReconnect() {
	if b.reconnect != nil {
		return
	}
	metrics.EventReconnectsTotal.Inc()
	b.reconnect = b.sched.AfterFunc(b.cfg.ReconnectDelay, func() {
		b.reconnect = nil
		b.connect()
	})
}

// receive runs on the loop for every frame
func (b *Bridge) receive(data []byte) {
	metrics.EventFramesTotal.WithLabelValues("received").Inc()

	var f frame
	if err := json.Unmarshal(data, &f); err != nil || len(f.Data) == 0 {
		metrics.EventFramesTotal.WithLabelValues("invalid").Inc()
		b.logger.Warn().Err(err).Msg("Dropping malformed event frame")
		return
	}

	canonical, err := canonicalJSON(f.Data)
	if err != nil {
		metrics.EventFramesTotal.WithLabelValues("invalid").Inc()
		b.logger.Warn().Err(err).Msg("Dropping malformed event payload")
		return
	}

	key := xxhash.Sum64(canonical)
	now := b.cfg.Now()
	b.expire(now)
	if _, ok := b.pending[key]; ok {
		metrics.EventFramesTotal.WithLabelValues("duplicate").Inc()
		return
	}

	var payload struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(canonical, &payload)
	a, _ := action.Parse(payload.Type)

	p := &pending{action: a, seen: now}
	b.pending[key] = p
	p.timer = b.sched.AfterFunc(b.cfg.Debounce, func() {
		if b.pending[key] != p || p.delivered {
			return
		}
		// The entry outlives delivery so a copy arriving on the deadline
		// is still a duplicate. expire drops it once the window has passed.
		p.delivered = true
		b.deliver(p.action)
	})
}

// expire drops delivered entries whose window closed before now. The
// window is inclusive: a frame exactly Debounce after the first is a
// duplicate.
func (b *Bridge) expire(now time.Time) {
	for key, p := range b.pending {
		if p.delivered && now.Sub(p.seen) > b.cfg.Debounce {
			delete(b.pending, key)
		}
	}
}

func (b *Bridge) deliver(a action.Action) {
	metrics.EventFramesTotal.WithLabelValues("delivered").Inc()
	b.logger.Debug().Str("action_type", a.Type()).Msg("Delivering event")
	if err := b.bus.Dispatch(a); err != nil {
		b.logger.Error().Err(err).Msg("Failed to deliver event")
	}
}

// shutdown runs on the loop
func (b *Bridge) shutdown() {
	if b.reconnect != nil {
		b.reconnect.Stop()
		b.reconnect = nil
	}
	for key, p := range b.pending {
		p.timer.Stop()
		delete(b.pending, key)
	}
}

func (b *Bridge) closeConn() {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn != nil {
		_ = b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = b.conn.Close()
		b.conn = nil
	}
}

func (b *Bridge) setState(s State, msg string) {
	prev := State(b.state.Swap(int32(s)))
	connected := s == StateConnected
	if connected {
		metrics.EventConnected.Set(1)
	} else {
		metrics.EventConnected.Set(0)
	}
	metrics.UpdateComponent(metrics.ComponentEvent, connected, msg)

	if prev != s && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(s, msg)
	}
}

// canonicalJSON re-encodes a JSON value with sorted object keys, so equal
// payloads hash equally regardless of key order or spacing.
func canonicalJSON(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
