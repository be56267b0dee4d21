package ws

import (
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/redis"
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateAuthenticated
	StateClosed
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrSendBufferFull = errors.New("session send buffer full")
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionHandler 会话生命周期回调，上行请求只有登录、心跳、鉴权三种
type SessionHandler interface {
	OnOpen(ctx context.Context, s *Session)
	OnLoginRequest(ctx context.Context, s *Session)
	OnAuthorize(ctx context.Context, s *Session, token string)
	OnAuthenticated(ctx context.Context, s *Session)
	// OnSwitchUser 同一连接改登另一个账号，prevUID 是被顶掉的旧账号
	OnSwitchUser(ctx context.Context, s *Session, prevUID uint64)
	OnClose(ctx context.Context, s *Session)
}

type Options struct {
	IdleTimeout    time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func (o Options) withDefaults() Options {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 90 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.IdleTimeout {
		o.PingInterval = o.IdleTimeout * 2 / 3
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 8 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

// Session 一条 WebSocket 长连接
type Session struct {
	handle  string
	ip      string
	token   string
	conn    *websocket.Conn
	handler SessionHandler
	opts    Options

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
	uid       atomic.Uint64
}

func NewSession(conn *websocket.Conn, r *http.Request, handler SessionHandler, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		handle:  uuid.NewString(),
		ip:      ClientIP(r),
		token:   ExtractToken(r),
		conn:    conn,
		handler: handler,
		opts:    opts,
		send:    make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) Handle() string { return s.handle }
func (s *Session) IP() string     { return s.ip }
func (s *Session) Token() string  { return s.token }
func (s *Session) UID() uint64    { return s.uid.Load() }
func (s *Session) State() State   { return State(s.state.Load()) }

// Send 直接向本连接写一帧，不经过推送通道
func (s *Session) Send(frame *Frame) error {
	if s.State() == StateClosed {
		return ErrSessionClosed
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSendBufferFull
	}
}

// Close 主动关闭连接，读循环随之退出并走正常关闭流程
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Run 阻塞直到连接关闭
func (s *Session) Run(ctx context.Context) {
	pubsub := redis.Subscribe(ctx, HandleChannel(s.handle), GroupChannel(consts.BroadcastGroup))
	if _, err := pubsub.Receive(ctx); err != nil {
		log.ErrorContext(ctx, "WS 订阅推送频道失败", "handle", s.handle, "err", err)
		_ = pubsub.Close()
		s.state.Store(int32(StateClosed))
		s.Close()
		return
	}

	s.state.Store(int32(StateOpen))
	log.InfoContext(ctx, "WS 连接已建立", "handle", s.handle, "ip", s.ip)

	s.handler.OnOpen(ctx, s)

	go s.writePump(ctx, pubsub.Channel())
	s.readPump(ctx)

	s.state.Store(int32(StateClosed))
	s.Close()
	_ = pubsub.Close()
	s.handler.OnClose(ctx, s)
	log.InfoContext(ctx, "WS 连接已断开", "handle", s.handle, "uid", s.UID())
}

func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(s.opts.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WarnContext(ctx, "WS 读取失败", "handle", s.handle, "err", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		s.dispatch(ctx, data)
	}
}

func (s *Session) dispatch(ctx context.Context, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.WarnContext(ctx, "WS 无法解析的请求", "handle", s.handle, "err", err)
		return
	}

	switch req.Type {
	case ReqLogin:
		s.handler.OnLoginRequest(ctx, s)
	case ReqHeartbeat:
	case ReqAuthorize:
		s.handler.OnAuthorize(ctx, s, parseToken(req.Data))
	default:
		log.WarnContext(ctx, "WS 未知请求类型", "handle", s.handle, "type", req.Type)
	}
}

// parseToken 兼容 data 直接为字符串或 {"token": "..."}
func parseToken(raw json.RawMessage) string {
	var token string
	if err := json.Unmarshal(raw, &token); err == nil {
		return token
	}
	var d AuthorizeData
	if err := json.Unmarshal(raw, &d); err == nil {
		return d.Token
	}
	return ""
}

func (s *Session) writePump(ctx context.Context, pushCh <-chan *goredis.Message) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-pushCh:
			if !ok {
				s.Close()
				return
			}
			if err := s.deliver(ctx, []byte(msg.Payload)); err != nil {
				log.WarnContext(ctx, "WS 推送失败", "handle", s.handle, "err", err)
				s.Close()
				return
			}
		case data := <-s.send:
			if err := s.write(websocket.TextMessage, data); err != nil {
				log.WarnContext(ctx, "WS 推送失败", "handle", s.handle, "err", err)
				s.Close()
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// deliver 处理推送信封，auth 信封先把会话标记为已登录再下发
func (s *Session) deliver(ctx context.Context, payload []byte) error {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.WarnContext(ctx, "WS 无法解析的推送信封", "handle", s.handle, "err", err)
		return nil
	}

	authenticated := false
	if env.Op == OpAuth {
		prev := s.uid.Swap(env.UID)
		if prev != 0 && prev != env.UID {
			s.handler.OnSwitchUser(ctx, s, prev)
		}
		s.state.CompareAndSwap(int32(StateOpen), int32(StateAuthenticated))
		authenticated = true
	}

	if err := s.write(websocket.TextMessage, env.Data); err != nil {
		return err
	}

	if authenticated {
		s.handler.OnAuthenticated(ctx, s)
	}
	return nil
}

func (s *Session) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	return s.conn.WriteMessage(messageType, data)
}
