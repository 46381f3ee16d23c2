package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// upstreamServer is a fake monitor. serve runs once per accepted connection,
// numbered from 1.
type upstreamServer struct {
	url   string
	conns atomic.Int32
}

func newUpstreamServer(t *testing.T, serve func(n int32, conn *websocket.Conn)) *upstreamServer {
	t.Helper()

	us := &upstreamServer{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(us.conns.Add(1), conn)
	}))
	t.Cleanup(server.Close)

	us.url = "ws" + strings.TrimPrefix(server.URL, "http")
	return us
}

// drain keeps a server-side connection open until the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// recorder collects frames seen by OnMessage and OnUserUpdate in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, e := range r.snapshot() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func newTestClient(url string, opts Options) *WSClient {
	opts.URL = url
	return NewWSClient(opts, zap.NewNop())
}

// go test -v --run TestWSClient_SubscribesOnConnected
func TestWSClient_SubscribesOnConnected(t *testing.T) {
	type received struct {
		req SubscribeRequest
		at  time.Time
	}
	got := make(chan received, 10)

	us := newUpstreamServer(t, func(n int32, conn *websocket.Conn) {
		assert.NoError(t, conn.WriteJSON(map[string]string{"type": TypeConnected}))
		// a second connected frame on the same connection must not resubscribe
		assert.NoError(t, conn.WriteJSON(map[string]string{"type": TypeConnected}))
		for {
			var req SubscribeRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			got <- received{req: req, at: time.Now()}
		}
	})

	client := newTestClient(us.url, Options{Accounts: []string{"alice", "bob", "carol"}})
	client.Start()
	defer client.Stop()

	var subs []received
	for len(subs) < 3 {
		select {
		case r := <-got:
			subs = append(subs, r)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for subscriptions, got %d", len(subs))
		}
	}

	assert.Equal(t, "alice", subs[0].req.TwitterUsername)
	assert.Equal(t, "bob", subs[1].req.TwitterUsername)
	assert.Equal(t, "carol", subs[2].req.TwitterUsername)
	for i, s := range subs {
		assert.Equal(t, TypeSubscribe, s.req.Type)
		if i > 0 {
			assert.GreaterOrEqual(t, s.at.Sub(subs[i-1].at), 40*time.Millisecond)
		}
	}

	select {
	case r := <-got:
		t.Fatalf("unexpected extra subscription: %+v", r.req)
	case <-time.After(300 * time.Millisecond):
	}
}

// go test -v --run TestWSClient_ForwardsBeforeTypeHandling
func TestWSClient_ForwardsBeforeTypeHandling(t *testing.T) {
	update := `{"type":"user-update","data":{"twitterUser":{"screenName":"alice"},"status":{"text":"hi"}}}`

	us := newUpstreamServer(t, func(n int32, conn *websocket.Conn) {
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(update)))
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
		drain(conn)
	})

	rec := &recorder{}
	client := newTestClient(us.url, Options{})
	client.OnMessage(func(b []byte) { rec.add("msg:" + string(b)) })
	client.OnUserUpdate(func(data json.RawMessage) { rec.add("update:" + string(data)) })
	client.Start()
	defer client.Stop()

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 4 }, 2*time.Second, 10*time.Millisecond)

	events := rec.snapshot()
	assert.Contains(t, events[0], StatusConnected)
	assert.Equal(t, "msg:"+update, events[1])
	assert.Equal(t, `update:{"twitterUser":{"screenName":"alice"},"status":{"text":"hi"}}`, events[2])
	assert.Equal(t, `msg:{"type":"ping"}`, events[3])
	for _, e := range events {
		assert.NotContains(t, e, "not json")
	}
	assert.Equal(t, StateConnected, client.State())
	assert.Equal(t, StatusConnected, client.Status())
}

// go test -v --run TestWSClient_ForwardsAnyJSONFrame
func TestWSClient_ForwardsAnyJSONFrame(t *testing.T) {
	frames := []string{
		`{"type":"error","message":{"code":429,"reason":"rate limited"}}`,
		`["not","an","object"]`,
		`{"type":7}`,
		`"just a string"`,
		`{"type":"user-update","data":"unexpected"}`,
		`{"type":"ping"}`,
	}

	us := newUpstreamServer(t, func(n int32, conn *websocket.Conn) {
		for _, f := range frames {
			assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(f)))
		}
		drain(conn)
	})

	rec := &recorder{}
	client := newTestClient(us.url, Options{})
	client.OnMessage(func(b []byte) { rec.add("msg:" + string(b)) })
	client.OnUserUpdate(func(data json.RawMessage) { rec.add("update:" + string(data)) })
	client.Start()
	defer client.Stop()

	// status frame + every upstream frame + one user-update payload
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= len(frames)+2 }, 2*time.Second, 10*time.Millisecond)

	events := rec.snapshot()
	assert.Contains(t, events[0], StatusConnected)
	var forwarded []string
	for _, e := range events[1:] {
		if strings.HasPrefix(e, "msg:") {
			forwarded = append(forwarded, strings.TrimPrefix(e, "msg:"))
		}
	}
	assert.Equal(t, frames, forwarded)
	assert.Contains(t, events, `update:"unexpected"`)
	assert.Equal(t, StateConnected, client.State())
}

func TestEnvelope_MessageText(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"error","message":"bad account"}`), &env))
	assert.Equal(t, "bad account", env.MessageText())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"error","message":{"code":429}}`), &env))
	assert.Equal(t, `{"code":429}`, env.MessageText())
}

// go test -v --run TestWSClient_StartIsIdempotent
func TestWSClient_StartIsIdempotent(t *testing.T) {
	us := newUpstreamServer(t, func(n int32, conn *websocket.Conn) { drain(conn) })

	client := newTestClient(us.url, Options{})
	client.Start()
	client.Start()
	defer client.Stop()

	require.Eventually(t, func() bool { return client.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)
	client.Start()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), us.conns.Load())
}

// go test -v --run TestWSClient_ReconnectsAfterFixedDelay
func TestWSClient_ReconnectsAfterFixedDelay(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the real reconnect delay")
	}

	us := newUpstreamServer(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			return // close the first connection immediately
		}
		drain(conn)
	})

	var disconnectedAt atomic.Int64
	client := newTestClient(us.url, Options{})
	client.OnMessage(func(b []byte) {
		if strings.Contains(string(b), StatusDisconnected) {
			disconnectedAt.CompareAndSwap(0, time.Now().UnixNano())
		}
	})
	client.Start()
	defer client.Stop()

	require.Eventually(t, func() bool { return disconnectedAt.Load() != 0 }, 2*time.Second, 5*time.Millisecond)
	closedAt := time.Unix(0, disconnectedAt.Load())
	assert.Equal(t, StateDisconnected, client.State())

	time.Sleep(time.Until(closedAt.Add(4500 * time.Millisecond)))
	assert.Equal(t, int32(1), us.conns.Load(), "reconnected before the delay elapsed")

	require.Eventually(t, func() bool { return us.conns.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return client.State() == StateConnected }, time.Second, 10*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(2), us.conns.Load())
}

// go test -v --run TestWSClient_StopCancelsReconnect
func TestWSClient_StopCancelsReconnect(t *testing.T) {
	us := newUpstreamServer(t, func(n int32, conn *websocket.Conn) {})

	rec := &recorder{}
	client := newTestClient(us.url, Options{ReconnectDelay: 200 * time.Millisecond})
	client.OnMessage(func(b []byte) { rec.add(string(b)) })
	client.Start()

	require.Eventually(t, func() bool { return rec.count(`{"type":"system","message":"Upstream Disconnected"`) == 1 },
		2*time.Second, 5*time.Millisecond)
	client.Stop()

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), us.conns.Load())
	assert.Equal(t, StateDisconnected, client.State())
}

// go test -v --run TestWSClient_DialFailureSchedulesReconnect
func TestWSClient_DialFailureSchedulesReconnect(t *testing.T) {
	var up atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drain(conn)
	}))
	defer server.Close()

	client := newTestClient("ws"+strings.TrimPrefix(server.URL, "http"), Options{ReconnectDelay: 100 * time.Millisecond})
	client.Start()
	defer client.Stop()

	time.Sleep(50 * time.Millisecond)
	up.Store(true)

	require.Eventually(t, func() bool { return client.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)
}
