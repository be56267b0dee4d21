package repository

import (
	"Mallchat/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRolesRepo interface {
	GetUserRoles(ctx context.Context, userId uint64) ([]*model.Role, error)
	HasAnyRole(ctx context.Context, userId uint64, roleNames ...string) (bool, error)
	AddRoleToUser(ctx context.Context, userId uint64, roleId uint64) error
	DeleteRoleFromUser(ctx context.Context, userId uint64, roleId uint64) error
}

type UserRolesRepoImpl struct {
	db *gorm.DB
}

func NewUserRolesRepo(db *gorm.DB) UserRolesRepo {
	return &UserRolesRepoImpl{db: db}
}

func (s *UserRolesRepoImpl) rolesOf(ctx context.Context, userId uint64) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&model.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userId)
}

// GetUserRoles 按角色 id 排序，签发 token 时顺序稳定
func (s *UserRolesRepoImpl) GetUserRoles(ctx context.Context, userId uint64) ([]*model.Role, error) {
	var roles []*model.Role
	if err := s.rolesOf(ctx, userId).Order("roles.id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *UserRolesRepoImpl) HasAnyRole(ctx context.Context, userId uint64, roleNames ...string) (bool, error) {
	if len(roleNames) == 0 {
		return false, nil
	}
	var count int64
	err := s.rolesOf(ctx, userId).
		Where("roles.name IN ?", roleNames).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddRoleToUser 重复授予时忽略
func (s *UserRolesRepoImpl) AddRoleToUser(ctx context.Context, userId uint64, roleId uint64) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRole{UserID: userId, RoleID: roleId}).Error
}

func (s *UserRolesRepoImpl) DeleteRoleFromUser(ctx context.Context, userId uint64, roleId uint64) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userId, roleId).
		Delete(&model.UserRole{}).Error
}
