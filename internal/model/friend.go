package model

import "time"

// 申请类型
const (
	ApplyTypeAddFriend int8 = 1
)

// 申请状态
const (
	ApplyStatusWaiting int8 = 1
	ApplyStatusAgreed  int8 = 2
)

// 阅读状态
const (
	ApplyUnread int8 = 1
	ApplyRead   int8 = 2
)

// UserApply 好友申请
type UserApply struct {
	ID         uint64 `gorm:"primaryKey"`
	UID        uint64 `gorm:"not null;index:idx_uid_target,priority:1"`
	Type       int8   `gorm:"not null;default:1"`
	TargetID   uint64 `gorm:"not null;index:idx_uid_target,priority:2;index:idx_target_read,priority:1"`
	Msg        string `gorm:"type:varchar(64)"`
	Status     int8   `gorm:"not null;default:1"`
	ReadStatus int8   `gorm:"not null;default:1;index:idx_target_read,priority:2"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (UserApply) TableName() string {
	return "user_applies"
}

// UserFriend 好友关系，双向各一条
type UserFriend struct {
	ID        uint64 `gorm:"primaryKey"`
	UID       uint64 `gorm:"not null;uniqueIndex:idx_uid_friend,priority:1"`
	FriendUID uint64 `gorm:"not null;uniqueIndex:idx_uid_friend,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserFriend) TableName() string {
	return "user_friends"
}
