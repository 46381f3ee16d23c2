package broadcast

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"tweetsniper/pkg/relay"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Topic is the single topic every local subscriber is attached to.
const Topic = "updates"

// Subscriber is a local consumer of relayed frames.
type Subscriber interface {
	Send(msg []byte) error
}

// StatusFunc reports upstream connectivity for the attach greeting.
type StatusFunc func() string

// Hub fans every published frame out to the currently attached subscribers.
// Delivery is best effort: no retry, no acknowledgment, and a slow client
// loses frames instead of slowing the others.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Subscriber]struct{}
	status StatusFunc
	logger *zap.Logger
}

func NewHub(status StatusFunc, logger *zap.Logger) *Hub {
	if status == nil {
		status = func() string { return relay.StatusConnecting }
	}
	return &Hub{
		subs:   make(map[Subscriber]struct{}),
		status: status,
		logger: logger.Named("broadcast"),
	}
}

// Attach adds s to the topic and greets it with the current upstream status.
func (h *Hub) Attach(s Subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Info("local client connected", zap.String("topic", Topic), zap.Int("subscribers", n))

	greeting := relay.NewSystemMessage("Connected to Relay Server", h.status())
	if err := s.Send(greeting); err != nil {
		h.logger.Warn("failed to greet local client", zap.Error(err))
	}
}

// Detach removes s. Frames published afterwards are not delivered to it.
func (h *Hub) Detach(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Info("local client disconnected", zap.String("topic", Topic), zap.Int("subscribers", n))
}

// Publish sends msg to every attached subscriber.
func (h *Hub) Publish(msg []byte) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.Send(msg); err != nil {
			h.logger.Debug("dropped frame for local client", zap.Error(err))
		}
	}
}

// Count returns the number of attached subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades local clients to WebSocket and attaches them for the
// lifetime of the connection. Plain HTTP requests get a short banner.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("WebSocket Relay Server Running. Connect via WebSocket."))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("local upgrade failed", zap.Error(err))
		return
	}

	sub := newWSSubscriber(conn, sendQueueSize, subscriberWriteTimeout)
	go sub.writeLoop()
	h.Attach(sub)
	defer func() {
		h.Detach(sub)
		sub.close()
	}()

	// Inbound frames from local clients are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

const (
	sendQueueSize          = 256
	subscriberWriteTimeout = 5 * time.Second
)

var (
	errSubscriberBusy   = errors.New("local client send queue full")
	errSubscriberClosed = errors.New("local client closed")
)

// wsSubscriber queues frames for one local connection and writes them on its
// own goroutine, so a stalled client never holds up Publish. Frames arriving
// while the queue is full are dropped for that client only.
type wsSubscriber struct {
	conn         *websocket.Conn
	out          chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newWSSubscriber(conn *websocket.Conn, queue int, writeTimeout time.Duration) *wsSubscriber {
	return &wsSubscriber{
		conn:         conn,
		out:          make(chan []byte, queue),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (s *wsSubscriber) Send(msg []byte) error {
	select {
	case <-s.done:
		return errSubscriberClosed
	default:
	}

	select {
	case s.out <- msg:
		return nil
	default:
		return errSubscriberBusy
	}
}

// writeLoop drains the queue until close. A failed write closes the
// connection, which ends the read loop in ServeHTTP.
func (s *wsSubscriber) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *wsSubscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
