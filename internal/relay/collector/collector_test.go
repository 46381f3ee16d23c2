package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tweetsniper/config"
	"tweetsniper/pkg/relay"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestStartCollector_RelaysAndArchives
func TestStartCollector_RelaysAndArchives(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		<-release
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"connected"}`))

		var sub relay.SubscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"user-update","data":{"twitterUser":{"screenName":"`+sub.TwitterUsername+`"},"status":{"text":"buy $PEPE"}}}`))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer upstream.Close()

	cfg := &config.Config{
		Relay: config.RelayConfig{
			UpstreamURL: "ws" + strings.TrimPrefix(upstream.URL, "http"),
			Accounts:    []string{"pawx_ai"},
			ListenAddr:  "127.0.0.1:0",
		},
		Archive: config.ArchiveConfig{Path: filepath.Join(t.TempDir(), "tweets.json")},
	}

	c, err := StartCollector(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Shutdown(ctx)
	}()

	local := httptest.NewServer(c.Hub)
	defer local.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(local.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// greeting first, then let the upstream talk
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var greeting relay.SystemMessage
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, relay.TypeSystem, greeting.Type)
	close(release)

	var types []string
	for !contains(types, relay.TypeUserUpdate) {
		var env relay.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		types = append(types, env.Type)
	}
	assert.Contains(t, types, relay.TypeConnected)

	require.Eventually(t, func() bool {
		posts, err := c.Archive.ReadAll()
		return err == nil && len(posts) == 1
	}, 2*time.Second, 10*time.Millisecond)

	posts, _ := c.Archive.ReadAll()
	assert.Equal(t, "pawx_ai", posts[0].User.ScreenName)
	assert.Equal(t, "buy $PEPE", posts[0].Text)
}

func TestStartCollector_RequiresUpstream(t *testing.T) {
	_, err := StartCollector(context.Background(), &config.Config{}, zap.NewNop())
	require.Error(t, err)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
