package service

import (
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/redis"
	"Mallchat/internal/pkg/worker"
	"Mallchat/internal/repository"
	"context"
	"errors"
	"time"
)

// LockOptions 分布式锁的过期与等待时间
type LockOptions struct {
	Expire time.Duration
	Wait   time.Duration
}

// acquireLock 等待超时即视为请求过于频繁
func acquireLock(ctx context.Context, key string, opts LockOptions) (*redis.Lock, error) {
	lock, err := redis.AcquireLock(ctx, key, opts.Expire, opts.Wait)
	if err != nil {
		if errors.Is(err, redis.ErrLockTimeout) {
			return nil, ErrTooFrequent
		}
		return nil, err
	}
	return lock, nil
}

var _ TaskSubmitter = (*worker.Pool)(nil)

// TaskSubmitter 异步任务投递
type TaskSubmitter interface {
	Submit(ctx context.Context, name string, fn worker.TaskFunc) error
	SubmitRetry(ctx context.Context, name string, fn worker.TaskFunc, policy worker.RetryPolicy) error
}

// hasChatPower 超级管理员或群聊管理员
func hasChatPower(roles []*model.Role) bool {
	for _, role := range roles {
		if role.Name == consts.RoleAdmin || role.Name == consts.RoleChatManager {
			return true
		}
	}
	return false
}

func roleNames(roles []*model.Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names
}

// checkRoomAccess 校验用户能否在房间发言，forRead 时忽略单聊的拉黑状态
func checkRoomAccess(ctx context.Context, roomRepo repository.RoomRepo, room *model.Room, uid uint64, forRead bool) error {
	if room == nil {
		return ErrRoomNotFound
	}
	if room.IsBroadcast() {
		return nil
	}

	switch room.Type {
	case model.RoomTypeFriend:
		friend, err := roomRepo.GetRoomFriend(ctx, room.ID)
		if err != nil {
			return err
		}
		if friend == nil {
			return ErrRoomNotFound
		}
		if !friend.Contains(uid) {
			return ErrNotRoomMember
		}
		if !forRead && friend.Status != model.RoomFriendNormal {
			return ErrFriendRoomDisabled
		}
		return nil
	case model.RoomTypeGroup:
		group, err := roomRepo.GetRoomGroup(ctx, room.ID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		member, err := roomRepo.GetMember(ctx, group.ID, uid)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrNotRoomMember
		}
		return nil
	default:
		return ErrRoomNotFound
	}
}

// roomMemberUIDs 有成员名单的房间的全部成员，全员房间返回 nil
func roomMemberUIDs(ctx context.Context, roomRepo repository.RoomRepo, room *model.Room) ([]uint64, error) {
	if room.IsBroadcast() {
		return nil, nil
	}
	switch room.Type {
	case model.RoomTypeFriend:
		friend, err := roomRepo.GetRoomFriend(ctx, room.ID)
		if err != nil || friend == nil {
			return nil, err
		}
		return []uint64{friend.UID1, friend.UID2}, nil
	case model.RoomTypeGroup:
		group, err := roomRepo.GetRoomGroup(ctx, room.ID)
		if err != nil || group == nil {
			return nil, err
		}
		return roomRepo.GetMemberUIDs(ctx, group.ID)
	}
	return nil, nil
}
