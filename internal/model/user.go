package model

import (
	"time"
)

// 在线状态
const (
	UserActiveOnline  int8 = 1
	UserActiveOffline int8 = 2
)

// 账号状态
const (
	UserStatusNormal int8 = 0
	UserStatusBlack  int8 = 1
)

type User struct {
	ID          uint64    `gorm:"primaryKey"`
	Name        string    `gorm:"type:varchar(20);index:idx_name"`
	Avatar      string    `gorm:"type:varchar(255)"`
	Sex         int8      `gorm:"not null;default:0"`
	OpenID      string    `gorm:"type:varchar(32);uniqueIndex:idx_open_id;not null"`
	Active      int8      `gorm:"not null;default:2;index:idx_active"`
	LastOptTime time.Time `gorm:"index:idx_last_opt_time"`
	IPInfo      IPInfo    `gorm:"type:json;serializer:json"`
	ItemID      *uint64
	Status      int8 `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	UserRoles []UserRole `gorm:"foreignKey:UserID;references:ID"`
}

func (User) TableName() string {
	return "users"
}

// IPDetail IP 归属地
type IPDetail struct {
	IP       string `json:"ip,omitempty"`
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	ISP      string `json:"isp,omitempty"`
	CountyID string `json:"countyId,omitempty"`
}

// IPInfo 注册与最近一次登录的 IP
type IPInfo struct {
	CreateIP       string    `json:"createIp,omitempty"`
	CreateIPDetail *IPDetail `json:"createIpDetail,omitempty"`
	UpdateIP       string    `json:"updateIp,omitempty"`
	UpdateIPDetail *IPDetail `json:"updateIpDetail,omitempty"`
}

// RefreshIP 记录最新 IP，首次登录同时作为注册 IP
func (i *IPInfo) RefreshIP(ip string) {
	if ip == "" {
		return
	}
	if i.CreateIP == "" {
		i.CreateIP = ip
	}
	if i.UpdateIP != ip {
		i.UpdateIP = ip
		i.UpdateIPDetail = nil
	}
}

// NeedRefreshDetail 最新 IP 尚未解析归属地
func (i *IPInfo) NeedRefreshDetail() bool {
	return i.UpdateIP != "" && i.UpdateIPDetail == nil
}

// ApplyDetail 写入解析结果，注册 IP 相同时一并回填
func (i *IPInfo) ApplyDetail(detail *IPDetail) {
	if detail == nil || detail.IP != i.UpdateIP {
		return
	}
	i.UpdateIPDetail = detail
	if i.CreateIP == detail.IP && i.CreateIPDetail == nil {
		i.CreateIPDetail = detail
	}
}
