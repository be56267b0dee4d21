package model

import "time"

// Contact 用户在某个房间的会话记录，全员广播房间不落这张表
type Contact struct {
	ID         uint64    `gorm:"primaryKey"`
	UID        uint64    `gorm:"not null;uniqueIndex:idx_uid_room,priority:1"`
	RoomID     uint64    `gorm:"not null;uniqueIndex:idx_uid_room,priority:2;index:idx_contact_room_id"`
	ReadTime   time.Time `gorm:"index:idx_read_time"`
	ActiveTime time.Time `gorm:"index:idx_contact_active_time"`
	LastMsgID  uint64    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Contact) TableName() string {
	return "contacts"
}
