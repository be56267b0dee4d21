package job

import (
	"Mallchat/internal/pkg/logger"
	"Mallchat/internal/pkg/wechat"
	log "log/slog"
)

// WxTokenJob 提前刷新公众号 access_token，避免登录高峰时集中请求微信
type WxTokenJob struct {
	client wechat.Client
}

func NewWxTokenJob(client wechat.Client) *WxTokenJob {
	return &WxTokenJob{client: client}
}

func (s *WxTokenJob) Run() {
	ctx := logger.NewBackgroundContext("job")
	if _, err := s.client.AccessToken(ctx); err != nil {
		log.WarnContext(ctx, "warm up wechat access token error", "err", err)
		return
	}
	log.DebugContext(ctx, "wechat access token ready")
}
