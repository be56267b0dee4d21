package repository

import (
	"Mallchat/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendRepo interface {
	GetApply(ctx context.Context, id uint64) (*model.UserApply, error)
	GetPendingApply(ctx context.Context, uid, targetID uint64) (*model.UserApply, error)
	CreateApply(ctx context.Context, apply *model.UserApply) error
	CountUnread(ctx context.Context, targetID uint64) (int64, error)
	PageApplies(ctx context.Context, targetID, cursorID uint64, size int) ([]*model.UserApply, error)
	MarkRead(ctx context.Context, targetID uint64, ids []uint64) error
	ApproveApply(ctx context.Context, apply *model.UserApply) (bool, error)
	IsFriend(ctx context.Context, uid, friendUID uint64) (bool, error)
	DeleteFriend(ctx context.Context, uid, friendUID uint64) error
	PageFriends(ctx context.Context, uid, cursorID uint64, size int) ([]*model.UserFriend, error)
}

type FriendRepoImpl struct {
	db *gorm.DB
}

func NewFriendRepo(db *gorm.DB) FriendRepo {
	return &FriendRepoImpl{db: db}
}

func (s *FriendRepoImpl) GetApply(ctx context.Context, id uint64) (*model.UserApply, error) {
	apply := &model.UserApply{}
	result := s.db.WithContext(ctx).First(apply, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return apply, nil
}

func (s *FriendRepoImpl) GetPendingApply(ctx context.Context, uid, targetID uint64) (*model.UserApply, error) {
	apply := &model.UserApply{}
	result := s.db.WithContext(ctx).
		Where("uid = ? AND target_id = ? AND type = ? AND status = ?",
			uid, targetID, model.ApplyTypeAddFriend, model.ApplyStatusWaiting).
		First(apply)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return apply, nil
}

func (s *FriendRepoImpl) CreateApply(ctx context.Context, apply *model.UserApply) error {
	return s.db.WithContext(ctx).Create(apply).Error
}

func (s *FriendRepoImpl) CountUnread(ctx context.Context, targetID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UserApply{}).
		Where("target_id = ? AND read_status = ?", targetID, model.ApplyUnread).
		Count(&count).Error
	return count, err
}

func (s *FriendRepoImpl) PageApplies(ctx context.Context, targetID, cursorID uint64, size int) ([]*model.UserApply, error) {
	applies := make([]*model.UserApply, 0, size)
	query := s.db.WithContext(ctx).Where("target_id = ?", targetID)
	if cursorID > 0 {
		query = query.Where("id < ?", cursorID)
	}
	if err := query.Order("id DESC").Limit(size).Find(&applies).Error; err != nil {
		return nil, err
	}
	return applies, nil
}

func (s *FriendRepoImpl) MarkRead(ctx context.Context, targetID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&model.UserApply{}).
		Where("target_id = ? AND id IN ? AND read_status = ?", targetID, ids, model.ApplyUnread).
		Update("read_status", model.ApplyRead).Error
}

// ApproveApply 申请置为已同意并写入双向好友关系，申请已被处理时返回 false
func (s *FriendRepoImpl) ApproveApply(ctx context.Context, apply *model.UserApply) (bool, error) {
	approved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.UserApply{}).
			Where("id = ? AND status = ?", apply.ID, model.ApplyStatusWaiting).
			Update("status", model.ApplyStatusAgreed)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		friends := []*model.UserFriend{
			{UID: apply.UID, FriendUID: apply.TargetID},
			{UID: apply.TargetID, FriendUID: apply.UID},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&friends).Error; err != nil {
			return err
		}
		approved = true
		return nil
	})
	return approved, err
}

func (s *FriendRepoImpl) IsFriend(ctx context.Context, uid, friendUID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UserFriend{}).
		Where("uid = ? AND friend_uid = ?", uid, friendUID).
		Count(&count).Error
	return count > 0, err
}

func (s *FriendRepoImpl) DeleteFriend(ctx context.Context, uid, friendUID uint64) error {
	return s.db.WithContext(ctx).
		Where("(uid = ? AND friend_uid = ?) OR (uid = ? AND friend_uid = ?)", uid, friendUID, friendUID, uid).
		Delete(&model.UserFriend{}).Error
}

func (s *FriendRepoImpl) PageFriends(ctx context.Context, uid, cursorID uint64, size int) ([]*model.UserFriend, error) {
	friends := make([]*model.UserFriend, 0, size)
	query := s.db.WithContext(ctx).Where("uid = ?", uid)
	if cursorID > 0 {
		query = query.Where("id < ?", cursorID)
	}
	if err := query.Order("id DESC").Limit(size).Find(&friends).Error; err != nil {
		return nil, err
	}
	return friends, nil
}
