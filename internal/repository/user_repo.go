package repository

import (
	"Mallchat/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type UserRepo interface {
	GetUserById(ctx context.Context, id uint64) (*model.User, error)
	GetUserByIds(ctx context.Context, ids []uint64) ([]*model.User, error)
	GetUserByOpenID(ctx context.Context, openID string) (*model.User, error)
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	PageOnlineUsers(ctx context.Context, cursorID uint64, size int) ([]*model.User, error)
	CountUsers(ctx context.Context) (int64, error)
	CountOnline(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUserName(ctx context.Context, id uint64, name string) error
	UpdateWearingItem(ctx context.Context, id uint64, itemID uint64) error
	UpdateActive(ctx context.Context, id uint64, active int8, optTime time.Time, ipInfo model.IPInfo) error
	UpdateIPInfo(ctx context.Context, id uint64, ipInfo model.IPInfo) error
	DeleteUser(ctx context.Context, id uint64) error
}

type UserRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &UserRepoImpl{db: db}
}

func (s *UserRepoImpl) GetUserById(ctx context.Context, id uint64) (*model.User, error) {
	user := &model.User{}
	result := s.db.WithContext(ctx).
		Preload("UserRoles").
		First(user, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return user, nil
}

func (s *UserRepoImpl) GetUserByIds(ctx context.Context, ids []uint64) ([]*model.User, error) {
	users := make([]*model.User, 0)
	if len(ids) == 0 {
		return users, nil
	}
	result := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

func (s *UserRepoImpl) GetUserByOpenID(ctx context.Context, openID string) (*model.User, error) {
	user := &model.User{}
	result := s.db.WithContext(ctx).
		Preload("UserRoles").
		Where("open_id = ?", openID).
		First(user)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return user, nil
}

func (s *UserRepoImpl) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	user := &model.User{}
	result := s.db.WithContext(ctx).
		Where("name = ?", name).
		First(user)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return user, nil
}

// PageOnlineUsers 在线用户按 id 倒序，cursorID 为 0 表示第一页
func (s *UserRepoImpl) PageOnlineUsers(ctx context.Context, cursorID uint64, size int) ([]*model.User, error) {
	users := make([]*model.User, 0, size)
	query := s.db.WithContext(ctx).
		Where("active = ?", model.UserActiveOnline)
	if cursorID > 0 {
		query = query.Where("id < ?", cursorID)
	}
	err := query.Order("id DESC").Limit(size).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserRepoImpl) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}

func (s *UserRepoImpl) CountOnline(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("active = ?", model.UserActiveOnline).
		Count(&count).Error
	return count, err
}

func (s *UserRepoImpl) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *UserRepoImpl) UpdateUserName(ctx context.Context, id uint64, name string) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("name", name).Error
}

func (s *UserRepoImpl) UpdateWearingItem(ctx context.Context, id uint64, itemID uint64) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("item_id", itemID).Error
}

func (s *UserRepoImpl) UpdateActive(ctx context.Context, id uint64, active int8, optTime time.Time, ipInfo model.IPInfo) error {
	return s.db.WithContext(ctx).
		Model(&model.User{ID: id}).
		Select("active", "last_opt_time", "ip_info").
		Updates(&model.User{
			Active:      active,
			LastOptTime: optTime,
			IPInfo:      ipInfo,
		}).Error
}

func (s *UserRepoImpl) UpdateIPInfo(ctx context.Context, id uint64, ipInfo model.IPInfo) error {
	return s.db.WithContext(ctx).
		Model(&model.User{ID: id}).
		Select("ip_info").
		Updates(&model.User{IPInfo: ipInfo}).Error
}

// DeleteUser 取关时清理用户、角色与背包
func (s *UserRepoImpl) DeleteUser(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("uid = ?", id).Delete(&model.UserBackpack{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, id).Error
	})
}
