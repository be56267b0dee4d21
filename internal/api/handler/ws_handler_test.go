package handler

import (
	"Mallchat/internal/pkg/redis"
	"Mallchat/internal/pkg/ws"
	"bytes"
	"context"
	log "log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type closeRecorder struct {
	closed chan struct{}
}

func (h *closeRecorder) OnOpen(context.Context, *ws.Session)               {}
func (h *closeRecorder) OnLoginRequest(context.Context, *ws.Session)       {}
func (h *closeRecorder) OnAuthorize(context.Context, *ws.Session, string)  {}
func (h *closeRecorder) OnAuthenticated(context.Context, *ws.Session)      {}
func (h *closeRecorder) OnSwitchUser(context.Context, *ws.Session, uint64) {}
func (h *closeRecorder) OnClose(context.Context, *ws.Session)              { close(h.closed) }

func TestWsHandler_LogsConnectAndDisconnectOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	redis.Rdb = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redis.Rdb.Close() })

	out := &syncBuffer{}
	prev := log.Default()
	log.SetDefault(log.New(log.NewJSONHandler(out, nil)))
	t.Cleanup(func() { log.SetDefault(prev) })

	rec := &closeRecorder{closed: make(chan struct{})}
	r := gin.New()
	r.GET("/websocket", NewWsHandler(rec, ws.Options{}).Connect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/websocket", nil)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	select {
	case <-rec.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session not closed")
	}
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "WS 连接已断开")
	}, 2*time.Second, 10*time.Millisecond)

	logs := out.String()
	assert.Equal(t, 1, strings.Count(logs, "WS 连接已建立"))
	assert.Equal(t, 1, strings.Count(logs, "WS 连接已断开"))
}
