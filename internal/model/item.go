package model

import "time"

// ItemConfig 物品配置，徽章与改名卡
type ItemConfig struct {
	ID       uint64 `gorm:"primaryKey"`
	Type     int8   `gorm:"not null"`
	Img      string `gorm:"type:varchar(255)"`
	Describe string `gorm:"type:varchar(255)"`
}

func (ItemConfig) TableName() string {
	return "item_configs"
}

// 背包物品状态
const (
	BackpackUnused int8 = 0
	BackpackUsed   int8 = 1
)

// UserBackpack 用户背包，Idempotent 保证同一业务只发放一次
type UserBackpack struct {
	ID         uint64    `gorm:"primaryKey"`
	UID        uint64    `gorm:"not null;index:idx_uid_item,priority:1"`
	ItemID     uint64    `gorm:"not null;index:idx_uid_item,priority:2"`
	Status     int8      `gorm:"not null;default:0"`
	Idempotent string    `gorm:"type:varchar(64);uniqueIndex:idx_idempotent;not null"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (UserBackpack) TableName() string {
	return "user_backpacks"
}
