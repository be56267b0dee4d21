package service

import (
	"Mallchat/internal/repository"
	"context"
	log "log/slog"
)

// RoleService 管理员给用户授予或收回角色，新角色在下次签发 token 时生效
type RoleService interface {
	GrantRole(ctx context.Context, uid uint64, roleName string) error
	RevokeRole(ctx context.Context, uid uint64, roleName string) error
}

type RoleServiceImpl struct {
	roleRepo      repository.RoleRepo
	userRolesRepo repository.UserRolesRepo
	userRepo      repository.UserRepo
}

func NewRoleService(roleRepo repository.RoleRepo, userRolesRepo repository.UserRolesRepo, userRepo repository.UserRepo) RoleService {
	return &RoleServiceImpl{
		roleRepo:      roleRepo,
		userRolesRepo: userRolesRepo,
		userRepo:      userRepo,
	}
}

func (s *RoleServiceImpl) GrantRole(ctx context.Context, uid uint64, roleName string) error {
	roleID, err := s.resolve(ctx, uid, roleName)
	if err != nil {
		return err
	}
	if err = s.userRolesRepo.AddRoleToUser(ctx, uid, roleID); err != nil {
		return err
	}
	log.InfoContext(ctx, "grant role", "uid", uid, "role", roleName)
	return nil
}

func (s *RoleServiceImpl) RevokeRole(ctx context.Context, uid uint64, roleName string) error {
	roleID, err := s.resolve(ctx, uid, roleName)
	if err != nil {
		return err
	}
	if err = s.userRolesRepo.DeleteRoleFromUser(ctx, uid, roleID); err != nil {
		return err
	}
	log.InfoContext(ctx, "revoke role", "uid", uid, "role", roleName)
	return nil
}

func (s *RoleServiceImpl) resolve(ctx context.Context, uid uint64, roleName string) (uint64, error) {
	user, err := s.userRepo.GetUserById(ctx, uid)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	role, err := s.roleRepo.GetRoleByName(ctx, roleName)
	if err != nil {
		return 0, err
	}
	if role == nil {
		return 0, ErrRoleNotFound
	}
	return role.ID, nil
}
