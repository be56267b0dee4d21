package model

import (
	"fmt"
	"time"
)

// 房间类型
const (
	RoomTypeGroup  int8 = 1
	RoomTypeFriend int8 = 2
)

// 热点标记，热点房间即全员广播房间
const (
	RoomHotFlagNo  int8 = 0
	RoomHotFlagYes int8 = 1
)

type Room struct {
	ID         uint64    `gorm:"primaryKey"`
	Type       int8      `gorm:"not null"`
	HotFlag    int8      `gorm:"not null;default:0"`
	ActiveTime time.Time `gorm:"index:idx_room_active_time"`
	LastMsgID  uint64    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Room) TableName() string {
	return "rooms"
}

// IsBroadcast 全员广播房间没有成员名单
func (r *Room) IsBroadcast() bool {
	return r.HotFlag == RoomHotFlagYes
}

// 单聊房间状态
const (
	RoomFriendNormal   int8 = 0
	RoomFriendDisabled int8 = 1
)

// RoomFriend 单聊房间，RoomKey 为排序后的 uid1_uid2
type RoomFriend struct {
	ID        uint64 `gorm:"primaryKey"`
	RoomID    uint64 `gorm:"not null;uniqueIndex:uniq_friend_room_id"`
	UID1      uint64 `gorm:"column:uid1;not null;index:idx_uid1"`
	UID2      uint64 `gorm:"column:uid2;not null;index:idx_uid2"`
	RoomKey   string `gorm:"type:varchar(64);uniqueIndex:idx_room_key;not null"`
	Status    int8   `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RoomFriend) TableName() string {
	return "room_friends"
}

// FriendRoomKey 两个 uid 小的在前
func FriendRoomKey(uidA, uidB uint64) string {
	if uidA > uidB {
		uidA, uidB = uidB, uidA
	}
	return fmt.Sprintf("%d_%d", uidA, uidB)
}

// Contains 是否为单聊双方之一
func (r *RoomFriend) Contains(uid uint64) bool {
	return r.UID1 == uid || r.UID2 == uid
}

// Peer 单聊对方
func (r *RoomFriend) Peer(uid uint64) uint64 {
	if r.UID1 == uid {
		return r.UID2
	}
	return r.UID1
}

// RoomGroup 群聊房间
type RoomGroup struct {
	ID           uint64 `gorm:"primaryKey"`
	RoomID       uint64 `gorm:"not null;uniqueIndex:uniq_group_room_id"`
	Name         string `gorm:"type:varchar(16);not null"`
	Avatar       string `gorm:"type:varchar(255)"`
	DeleteStatus int8   `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (RoomGroup) TableName() string {
	return "room_groups"
}

// 群成员角色
const (
	GroupRoleLeader  int8 = 1
	GroupRoleManager int8 = 2
	GroupRoleMember  int8 = 3
)

type GroupMember struct {
	ID        uint64 `gorm:"primaryKey"`
	GroupID   uint64 `gorm:"not null;uniqueIndex:idx_group_uid,priority:1"`
	UID       uint64 `gorm:"not null;uniqueIndex:idx_group_uid,priority:2;index:idx_member_uid"`
	Role      int8   `gorm:"not null;default:3"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GroupMember) TableName() string {
	return "group_members"
}

// IsManager 群主或管理员
func (m *GroupMember) IsManager() bool {
	return m.Role == GroupRoleLeader || m.Role == GroupRoleManager
}
