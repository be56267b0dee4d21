package repository

import (
	"Mallchat/internal/model"
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

// SaveHook 消息写入成功后回调，事务内写入的消息在提交后才回调
type SaveHook func(ctx context.Context, msg *model.Message)

type MessageRepo interface {
	Transaction(ctx context.Context, fn func(tx MessageRepo) error) error
	OnSaved(hook SaveHook)
	GetMessage(ctx context.Context, id uint64) (*model.Message, error)
	GetMessagesByIds(ctx context.Context, ids []uint64) ([]*model.Message, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	UpdateMessage(ctx context.Context, msg *model.Message) error
	CountBetween(ctx context.Context, roomID, fromID, toID uint64) (int64, error)
	PageByRoom(ctx context.Context, roomID, cursorID uint64, size int) ([]*model.Message, error)
	CountUnread(ctx context.Context, roomID uint64, after time.Time, excludeUID uint64) (int64, error)
}

type hookSet struct {
	mu    sync.RWMutex
	hooks []SaveHook
}

func (h *hookSet) add(hook SaveHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

func (h *hookSet) fire(ctx context.Context, msg *model.Message) {
	h.mu.RLock()
	hooks := h.hooks
	h.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, msg)
	}
}

type MessageRepoImpl struct {
	db      *gorm.DB
	hooks   *hookSet
	pending *[]*model.Message
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &MessageRepoImpl{db: db, hooks: &hookSet{}}
}

// Transaction fn 内只能使用 tx 访问消息表，提交后依次触发保存回调
func (s *MessageRepoImpl) Transaction(ctx context.Context, fn func(tx MessageRepo) error) error {
	if s.pending != nil {
		return fn(s)
	}
	pending := make([]*model.Message, 0, 1)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MessageRepoImpl{db: tx, hooks: s.hooks, pending: &pending})
	})
	if err != nil {
		return err
	}
	for _, msg := range pending {
		s.hooks.fire(ctx, msg)
	}
	return nil
}

func (s *MessageRepoImpl) OnSaved(hook SaveHook) {
	s.hooks.add(hook)
}

func (s *MessageRepoImpl) afterSave(ctx context.Context, msg *model.Message) {
	if s.pending != nil {
		*s.pending = append(*s.pending, msg)
		return
	}
	s.hooks.fire(ctx, msg)
}

func (s *MessageRepoImpl) GetMessage(ctx context.Context, id uint64) (*model.Message, error) {
	msg := &model.Message{}
	result := s.db.WithContext(ctx).First(msg, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return msg, nil
}

func (s *MessageRepoImpl) GetMessagesByIds(ctx context.Context, ids []uint64) ([]*model.Message, error) {
	msgs := make([]*model.Message, 0)
	if len(ids) == 0 {
		return msgs, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *MessageRepoImpl) CreateMessage(ctx context.Context, msg *model.Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}
	s.afterSave(ctx, msg)
	return nil
}

// UpdateMessage 覆盖类型、内容、扩展、回复与状态
func (s *MessageRepoImpl) UpdateMessage(ctx context.Context, msg *model.Message) error {
	err := s.db.WithContext(ctx).
		Model(msg).
		Select("type", "content", "extra", "reply_msg_id", "gap_count", "status").
		Updates(msg).Error
	if err != nil {
		return err
	}
	s.afterSave(ctx, msg)
	return nil
}

// CountBetween 同一房间内 id 严格介于两者之间的消息数
func (s *MessageRepoImpl) CountBetween(ctx context.Context, roomID, fromID, toID uint64) (int64, error) {
	if fromID > toID {
		fromID, toID = toID, fromID
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("room_id = ? AND id > ? AND id < ?", roomID, fromID, toID).
		Count(&count).Error
	return count, err
}

// PageByRoom 按 id 倒序，跳过撤回与删除的消息
func (s *MessageRepoImpl) PageByRoom(ctx context.Context, roomID, cursorID uint64, size int) ([]*model.Message, error) {
	msgs := make([]*model.Message, 0, size)
	query := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Where("status = ?", model.MsgStatusNormal).
		Where("type <> ?", model.MsgTypeRecall)
	if cursorID > 0 {
		query = query.Where("id < ?", cursorID)
	}
	if err := query.Order("id DESC").Limit(size).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *MessageRepoImpl) CountUnread(ctx context.Context, roomID uint64, after time.Time, excludeUID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("room_id = ? AND created_at > ? AND from_uid <> ?", roomID, after, excludeUID).
		Where("status = ?", model.MsgStatusNormal).
		Count(&count).Error
	return count, err
}
