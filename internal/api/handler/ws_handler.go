package handler

import (
	"Mallchat/internal/pkg/logger"
	"Mallchat/internal/pkg/ws"
	"context"
	log "log/slog"

	"github.com/gin-gonic/gin"
)

type WsHandler struct {
	sessionHandler ws.SessionHandler
	opts           ws.Options
}

func NewWsHandler(sessionHandler ws.SessionHandler, opts ws.Options) *WsHandler {
	return &WsHandler{sessionHandler: sessionHandler, opts: opts}
}

// Connect 升级为 WebSocket，鉴权在连接建立后由会话完成
func (s *WsHandler) Connect(c *gin.Context) {
	conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "WS 协议升级失败", "err", err)
		return
	}

	session := ws.NewSession(conn, c.Request, s.sessionHandler, s.opts)
	ctx := logger.WithTraceID(context.Background(), "ws-"+session.Handle())
	session.Run(ctx)
}
