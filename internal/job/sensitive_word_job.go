package job

import (
	"Mallchat/internal/pkg/logger"
	"Mallchat/internal/service"
	log "log/slog"
)

// SensitiveWordJob 定时从数据库重新加载敏感词
type SensitiveWordJob struct {
	svc service.SensitiveWordService
}

func NewSensitiveWordJob(svc service.SensitiveWordService) *SensitiveWordJob {
	return &SensitiveWordJob{svc: svc}
}

func (s *SensitiveWordJob) Run() {
	ctx := logger.NewBackgroundContext("job")
	if err := s.svc.Reload(ctx); err != nil {
		log.ErrorContext(ctx, "reload sensitive words error", "err", err)
	}
}
