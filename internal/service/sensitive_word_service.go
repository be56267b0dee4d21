package service

import (
	"Mallchat/internal/pkg/sensitive"
	"Mallchat/internal/repository"
	"context"
	log "log/slog"
)

// SensitiveWordService 从数据库加载敏感词到过滤器
type SensitiveWordService interface {
	Reload(ctx context.Context) error
}

type SensitiveWordServiceImpl struct {
	repo   repository.SensitiveWordRepo
	filter *sensitive.Filter
}

func NewSensitiveWordService(repo repository.SensitiveWordRepo, filter *sensitive.Filter) SensitiveWordService {
	return &SensitiveWordServiceImpl{repo: repo, filter: filter}
}

func (s *SensitiveWordServiceImpl) Reload(ctx context.Context) error {
	words, err := s.repo.GetAllWords(ctx)
	if err != nil {
		return err
	}
	s.filter.Reload(words)
	log.InfoContext(ctx, "敏感词已加载", "count", s.filter.Size())
	return nil
}
