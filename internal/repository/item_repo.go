package repository

import (
	"Mallchat/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type ItemRepo interface {
	GetItemConfig(ctx context.Context, id uint64) (*model.ItemConfig, error)
	GetItemConfigsByType(ctx context.Context, itemType int8) ([]*model.ItemConfig, error)
	GetBackpackByIdempotent(ctx context.Context, idempotent string) (*model.UserBackpack, error)
	GetFirstUnused(ctx context.Context, uid, itemID uint64) (*model.UserBackpack, error)
	CountUnused(ctx context.Context, uid, itemID uint64) (int64, error)
	HasItem(ctx context.Context, uid, itemID uint64) (bool, error)
	GetOwnedItemIDs(ctx context.Context, uid uint64, itemIDs []uint64) ([]uint64, error)
	CreateBackpack(ctx context.Context, backpack *model.UserBackpack) error
	UseItemAndRename(ctx context.Context, backpackID, uid uint64, name string) (bool, error)
}

type ItemRepoImpl struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepo {
	return &ItemRepoImpl{db: db}
}

func (s *ItemRepoImpl) GetItemConfig(ctx context.Context, id uint64) (*model.ItemConfig, error) {
	item := &model.ItemConfig{}
	result := s.db.WithContext(ctx).First(item, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return item, nil
}

func (s *ItemRepoImpl) GetItemConfigsByType(ctx context.Context, itemType int8) ([]*model.ItemConfig, error) {
	items := make([]*model.ItemConfig, 0)
	err := s.db.WithContext(ctx).
		Where("type = ?", itemType).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ItemRepoImpl) GetBackpackByIdempotent(ctx context.Context, idempotent string) (*model.UserBackpack, error) {
	backpack := &model.UserBackpack{}
	result := s.db.WithContext(ctx).
		Where("idempotent = ?", idempotent).
		First(backpack)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return backpack, nil
}

func (s *ItemRepoImpl) GetFirstUnused(ctx context.Context, uid, itemID uint64) (*model.UserBackpack, error) {
	backpack := &model.UserBackpack{}
	result := s.db.WithContext(ctx).
		Where("uid = ? AND item_id = ? AND status = ?", uid, itemID, model.BackpackUnused).
		Order("id ASC").
		First(backpack)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return backpack, nil
}

func (s *ItemRepoImpl) CountUnused(ctx context.Context, uid, itemID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UserBackpack{}).
		Where("uid = ? AND item_id = ? AND status = ?", uid, itemID, model.BackpackUnused).
		Count(&count).Error
	return count, err
}

func (s *ItemRepoImpl) HasItem(ctx context.Context, uid, itemID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UserBackpack{}).
		Where("uid = ? AND item_id = ?", uid, itemID).
		Count(&count).Error
	return count > 0, err
}

func (s *ItemRepoImpl) GetOwnedItemIDs(ctx context.Context, uid uint64, itemIDs []uint64) ([]uint64, error) {
	owned := make([]uint64, 0)
	if len(itemIDs) == 0 {
		return owned, nil
	}
	err := s.db.WithContext(ctx).
		Model(&model.UserBackpack{}).
		Distinct("item_id").
		Where("uid = ? AND item_id IN ?", uid, itemIDs).
		Pluck("item_id", &owned).Error
	if err != nil {
		return nil, err
	}
	return owned, nil
}

func (s *ItemRepoImpl) CreateBackpack(ctx context.Context, backpack *model.UserBackpack) error {
	return s.db.WithContext(ctx).Create(backpack).Error
}

// UseItemAndRename 消耗一张改名卡并改名，卡已被使用时返回 false
func (s *ItemRepoImpl) UseItemAndRename(ctx context.Context, backpackID, uid uint64, name string) (bool, error) {
	used := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.UserBackpack{}).
			Where("id = ? AND uid = ? AND status = ?", backpackID, uid, model.BackpackUnused).
			Update("status", model.BackpackUsed)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := tx.Model(&model.User{}).Where("id = ?", uid).Update("name", name).Error; err != nil {
			return err
		}
		used = true
		return nil
	})
	return used, err
}
