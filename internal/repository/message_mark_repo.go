package repository

import (
	"Mallchat/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// MarkCount 单条消息某类标记的数量
type MarkCount struct {
	MsgID uint64
	Type  int8
	Count int64
}

type MessageMarkRepo interface {
	GetMark(ctx context.Context, msgID, uid uint64, markType int8) (*model.MessageMark, error)
	CreateMark(ctx context.Context, mark *model.MessageMark) error
	DeleteMark(ctx context.Context, id uint64) error
	CountByMsg(ctx context.Context, msgID uint64, markType int8) (int64, error)
	CountByMsgIds(ctx context.Context, msgIDs []uint64) ([]*MarkCount, error)
	GetUserMarks(ctx context.Context, uid uint64, msgIDs []uint64) ([]*model.MessageMark, error)
}

type MessageMarkRepoImpl struct {
	db *gorm.DB
}

func NewMessageMarkRepo(db *gorm.DB) MessageMarkRepo {
	return &MessageMarkRepoImpl{db: db}
}

func (s *MessageMarkRepoImpl) GetMark(ctx context.Context, msgID, uid uint64, markType int8) (*model.MessageMark, error) {
	mark := &model.MessageMark{}
	result := s.db.WithContext(ctx).
		Where("msg_id = ? AND uid = ? AND type = ?", msgID, uid, markType).
		First(mark)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return mark, nil
}

func (s *MessageMarkRepoImpl) CreateMark(ctx context.Context, mark *model.MessageMark) error {
	return s.db.WithContext(ctx).Create(mark).Error
}

func (s *MessageMarkRepoImpl) DeleteMark(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Delete(&model.MessageMark{}, id).Error
}

func (s *MessageMarkRepoImpl) CountByMsg(ctx context.Context, msgID uint64, markType int8) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.MessageMark{}).
		Where("msg_id = ? AND type = ?", msgID, markType).
		Count(&count).Error
	return count, err
}

func (s *MessageMarkRepoImpl) CountByMsgIds(ctx context.Context, msgIDs []uint64) ([]*MarkCount, error) {
	counts := make([]*MarkCount, 0)
	if len(msgIDs) == 0 {
		return counts, nil
	}
	err := s.db.WithContext(ctx).
		Model(&model.MessageMark{}).
		Select("msg_id, type, COUNT(*) AS count").
		Where("msg_id IN ?", msgIDs).
		Group("msg_id, type").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *MessageMarkRepoImpl) GetUserMarks(ctx context.Context, uid uint64, msgIDs []uint64) ([]*model.MessageMark, error) {
	marks := make([]*model.MessageMark, 0)
	if len(msgIDs) == 0 {
		return marks, nil
	}
	err := s.db.WithContext(ctx).
		Where("uid = ? AND msg_id IN ?", uid, msgIDs).
		Find(&marks).Error
	if err != nil {
		return nil, err
	}
	return marks, nil
}
