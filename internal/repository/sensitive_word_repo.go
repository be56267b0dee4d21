package repository

import (
	"Mallchat/internal/model"
	"context"

	"gorm.io/gorm"
)

type SensitiveWordRepo interface {
	GetAllWords(ctx context.Context) ([]string, error)
}

type SensitiveWordRepoImpl struct {
	db *gorm.DB
}

func NewSensitiveWordRepo(db *gorm.DB) SensitiveWordRepo {
	return &SensitiveWordRepoImpl{db: db}
}

func (s *SensitiveWordRepoImpl) GetAllWords(ctx context.Context) ([]string, error) {
	words := make([]string, 0)
	err := s.db.WithContext(ctx).
		Model(&model.SensitiveWord{}).
		Pluck("word", &words).Error
	if err != nil {
		return nil, err
	}
	return words, nil
}
