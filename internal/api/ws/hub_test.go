package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/sprout/navigator/internal/domain/coordinator"
	"github.com/verdantlabs/sprout/navigator/internal/domain/dispatch"
	"github.com/verdantlabs/sprout/navigator/internal/domain/flows"
)

func newFixture(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil, nil)
	env := coordinator.NewEnv(hub, nil, nil)
	disp := dispatch.New(flows.NewSet(nil), env, nil)
	hub.Bind(disp)

	ctx, cancel := context.WithCancel(context.Background())
	go disp.Run(ctx)
	t.Cleanup(cancel)

	r := gin.New()
	r.GET("/ws", hub.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	sock, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sock.Close() })

	return hub, sock
}

// readUntil collects frames until one of the given type arrives.
func readUntil(t *testing.T, sock *websocket.Conn, frameType string) []Frame {
	t.Helper()
	sock.SetReadDeadline(time.Now().Add(3 * time.Second))

	var frames []Frame
	for {
		_, data, err := sock.ReadMessage()
		require.NoError(t, err)

		var f Frame
		require.NoError(t, sonic.Unmarshal(data, &f))
		frames = append(frames, f)
		if f.Type == frameType {
			return frames
		}
	}
}

func TestEventBuildsChainAndStreamsPresents(t *testing.T) {
	_, sock := newFixture(t)

	err := sock.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"open_comment","post_id":"p1","comment_id":"c2"}`))
	require.NoError(t, err)

	frames := readUntil(t, sock, "ack")

	var routes []string
	for _, f := range frames {
		if f.Type == "present" {
			routes = append(routes, f.Screen.Route)
		}
	}
	assert.Equal(t, []string{"shell", "feed", "feed/post", "feed/post/comments"}, routes)

	ack := frames[len(frames)-1]
	assert.Equal(t, "handled", ack.Outcome)
}

func TestMalformedPayloadGetsErrorFrame(t *testing.T) {
	_, sock := newFixture(t)

	err := sock.WriteMessage(websocket.TextMessage, []byte(`{"type":"open_post"}`))
	require.NoError(t, err)

	frames := readUntil(t, sock, "error")
	assert.Equal(t, "malformed_payload", frames[len(frames)-1].Error)
	for _, f := range frames {
		assert.NotEqual(t, "present", f.Type, "a rejected payload must not present anything")
	}
}

func TestDismissFramesOnTeardown(t *testing.T) {
	hub, sock := newFixture(t)

	err := sock.WriteMessage(websocket.TextMessage, []byte(`{"type":"open_post","post_id":"p1"}`))
	require.NoError(t, err)
	readUntil(t, sock, "ack")

	require.NoError(t, hub.disp.Reset(context.Background()))

	frames := readUntil(t, sock, "dismiss")
	assert.NotEmpty(t, frames[len(frames)-1].ScreenID)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	hub, _ := newFixture(t)

	require.Eventually(t, func() bool { return hub.ConnCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.mu.RLock()
	var cn *conn
	for _, c := range hub.conns {
		cn = c
	}
	hub.mu.RUnlock()
	require.NotNil(t, cn)

	// A slow-client drop in broadcast and the unregister on disconnect can
	// both close the same connection; the second call must be a no-op.
	cn.close()
	cn.close()

	assert.False(t, cn.enqueue([]byte(`{}`)), "closed connection must refuse frames")
}

func TestConnCountTracksLifecycle(t *testing.T) {
	hub, sock := newFixture(t)

	require.Eventually(t, func() bool { return hub.ConnCount() == 1 },
		time.Second, 10*time.Millisecond)

	sock.Close()
	require.Eventually(t, func() bool { return hub.ConnCount() == 0 },
		time.Second, 10*time.Millisecond)
}
