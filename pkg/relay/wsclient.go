package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State is the upstream connection state.
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

// Options configures a WSClient.
type Options struct {
	URL              string
	Accounts         []string
	ReconnectDelay   time.Duration
	SubscribeStagger time.Duration
	WriteTimeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 5 * time.Second
	}
	if o.SubscribeStagger <= 0 {
		o.SubscribeStagger = 50 * time.Millisecond
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	return o
}

// WSClient keeps a single subscription connection to the upstream monitor.
// A close or read error moves it back to StateDisconnected and arms exactly one
// reconnect timer; there is never more than one live connection or timer.
type WSClient struct {
	opts   Options
	dialer *websocket.Dialer
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	session  *session
	timer    *reconnectTimer
	stopped  bool
	cancel   context.CancelFunc
	ctx      context.Context
	wg       sync.WaitGroup
	handlers []func([]byte)
	onUpdate func(json.RawMessage)
}

// session is one live upstream connection.
type session struct {
	conn       *websocket.Conn
	writeMu    sync.Mutex
	done       chan struct{}
	subscribed bool // read loop only
}

type reconnectTimer struct {
	t *time.Timer
}

// NewWSClient creates a client for the given upstream. It does not connect
// until Start is called.
func NewWSClient(opts Options, logger *zap.Logger) *WSClient {
	return &WSClient{
		opts:   opts.withDefaults(),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger.Named("upstream"),
	}
}

// OnMessage registers a handler that receives every well-formed upstream frame
// verbatim, plus the locally produced system status frames. Handlers run on
// the read loop before any type-specific handling.
func (c *WSClient) OnMessage(h func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// OnUserUpdate registers the handler for the data payload of user-update frames.
func (c *WSClient) OnUserUpdate(h func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = h
}

// State reports the current connection state.
func (c *WSClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status is the upstream status string shown to newly attached subscribers.
func (c *WSClient) Status() string {
	if c.State() == StateConnected {
		return StatusConnected
	}
	return StatusConnecting
}

// Start begins connecting. Calling it while connecting, connected or waiting
// for a reconnect is a no-op.
func (c *WSClient) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = false
	if c.state != StateDisconnected || c.timer != nil {
		return
	}
	if c.cancel == nil {
		c.ctx, c.cancel = context.WithCancel(context.Background())
	}
	c.state = StateConnecting
	c.wg.Add(1)
	go c.connect(c.ctx)
}

// Stop cancels any pending reconnect, closes the live connection and waits
// for the read loop to exit.
func (c *WSClient) Stop() {
	c.mu.Lock()
	c.stopped = true
	if c.timer != nil {
		c.timer.t.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	s := c.session
	c.mu.Unlock()

	if s != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
	}

	c.wg.Wait()
	c.logger.Info("upstream client stopped")
}

func (c *WSClient) connect(ctx context.Context) {
	defer c.wg.Done()

	c.logger.Info("connecting to upstream", zap.String("url", c.opts.URL))
	conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)

	c.mu.Lock()
	if c.stopped {
		c.state = StateDisconnected
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.state = StateDisconnected
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.logger.Error("failed to connect to upstream", zap.String("url", c.opts.URL),
			zap.Duration("retry_in", c.opts.ReconnectDelay), zap.Error(err))
		return
	}

	s := &session{conn: conn, done: make(chan struct{})}
	c.session = s
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("upstream connected", zap.String("url", c.opts.URL))
	c.emit(NewSystemMessage("Upstream Connected", StatusConnected))

	c.listen(s)
}

// listen runs the read loop. Each frame is fully handled before the next read.
func (c *WSClient) listen(s *session) {
	defer c.handleClose(s)

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !c.isStopped() {
				c.logger.Warn("upstream read error", zap.Error(err))
			}
			return
		}
		c.handleFrame(s, msg)
	}
}

func (c *WSClient) handleFrame(s *session, msg []byte) {
	if !json.Valid(msg) {
		c.logger.Warn("dropping malformed upstream frame", zap.Int("bytes", len(msg)))
		return
	}

	c.emit(msg)

	// frames that are not a {type: string} object are forwarded only
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.logger.Debug("upstream frame has no usable type", zap.Error(err))
		return
	}

	switch env.Type {
	case TypeConnected:
		if s.subscribed {
			return
		}
		s.subscribed = true
		c.logger.Info("upstream ready, subscribing", zap.Int("accounts", len(c.opts.Accounts)))
		c.wg.Add(1)
		go c.subscribeAll(s)
	case TypeError:
		c.logger.Error("upstream reported error", zap.String("message", env.MessageText()))
	case TypeUserUpdate:
		c.mu.Lock()
		h := c.onUpdate
		c.mu.Unlock()
		if h != nil {
			h(env.Data)
		}
	}
}

// subscribeAll sends one subscribe request per account, staggered so the
// upstream does not reject the burst.
func (c *WSClient) subscribeAll(s *session) {
	defer c.wg.Done()

	for i, account := range c.opts.Accounts {
		if i > 0 {
			select {
			case <-s.done:
				return
			case <-time.After(c.opts.SubscribeStagger):
			}
		}

		select {
		case <-s.done:
			return
		default:
		}

		req := SubscribeRequest{Type: TypeSubscribe, TwitterUsername: account}
		if err := s.writeJSON(req, c.opts.WriteTimeout); err != nil {
			c.logger.Warn("failed to send subscription", zap.String("account", account), zap.Error(err))
			return
		}
		c.logger.Debug("subscribed", zap.String("account", account))
	}
}

func (c *WSClient) handleClose(s *session) {
	c.mu.Lock()
	close(s.done)
	_ = s.conn.Close()
	if c.session == s {
		c.session = nil
	}
	c.state = StateDisconnected
	stopped := c.stopped
	if !stopped {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	if stopped {
		return
	}
	c.logger.Warn("upstream disconnected", zap.Duration("retry_in", c.opts.ReconnectDelay))
	c.emit(NewSystemMessage("Upstream Disconnected", StatusDisconnected))
}

// scheduleReconnectLocked arms the reconnect timer unless one is pending.
// Caller must hold c.mu.
func (c *WSClient) scheduleReconnectLocked() {
	if c.timer != nil {
		return
	}
	rt := &reconnectTimer{}
	c.timer = rt
	rt.t = time.AfterFunc(c.opts.ReconnectDelay, func() {
		c.mu.Lock()
		if c.timer != rt {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		if c.stopped || c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.wg.Add(1)
		ctx := c.ctx
		c.mu.Unlock()

		c.connect(ctx)
	})
}

func (c *WSClient) emit(msg []byte) {
	c.mu.Lock()
	handlers := c.handlers
	c.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (c *WSClient) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (s *session) writeJSON(v any, timeout time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
	return s.conn.WriteJSON(v)
}
