package dto

import "time"

// UserInfoResp 个人信息
type UserInfoResp struct {
	ID               uint64 `json:"id"`
	Name             string `json:"name"`
	Avatar           string `json:"avatar"`
	Sex              int8   `json:"sex"`
	ModifyNameChance int64  `json:"modifyNameChance"`
}

// ModifyNameReq 改名
type ModifyNameReq struct {
	Name string `json:"name" binding:"required" validate:"required,max=6"`
}

// BadgeResp 徽章
type BadgeResp struct {
	ID       uint64 `json:"id"`
	Img      string `json:"img"`
	Describe string `json:"describe"`
	Obtain   int    `json:"obtain"`
	Wearing  int    `json:"wearing"`
}

// WearBadgeReq 佩戴徽章
type WearBadgeReq struct {
	BadgeID uint64 `json:"badgeId" binding:"required"`
}

// SummaryInfoReq 批量获取用户信息
type SummaryInfoReq struct {
	UIDList []uint64 `json:"uidList" binding:"required" validate:"required,min=1,max=50"`
}

// SummaryInfo 用户聚合信息
type SummaryInfo struct {
	UID         uint64   `json:"uid"`
	Name        string   `json:"name"`
	Avatar      string   `json:"avatar"`
	LocPlace    string   `json:"locPlace"`
	WearingItem *uint64  `json:"wearingItemId,omitempty"`
	ItemIDs     []uint64 `json:"itemIds"`
}

// ChatMemberResp 在线状态
type ChatMemberResp struct {
	UID          uint64    `json:"uid"`
	ActiveStatus int8      `json:"activeStatus"`
	LastOptTime  time.Time `json:"lastOptTime"`
}

// OnlineOfflineNotify 上下线推送
type OnlineOfflineNotify struct {
	ChangeList []ChatMemberResp `json:"changeList"`
	OnlineNum  int64            `json:"onlineNum"`
}

// LoginURLResp 登录二维码
type LoginURLResp struct {
	LoginURL string `json:"loginUrl"`
}

// LoginSuccessResp 登录成功推送
type LoginSuccessResp struct {
	UID          uint64 `json:"uid"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Power        int    `json:"power"`
}

// RefreshTokenReq 刷新 token
type RefreshTokenReq struct {
	Refresh string `json:"refresh"`
}

// RefreshTokenResp 刷新结果
type RefreshTokenResp struct {
	Token string `json:"token"`
}

// RoleReq 授予或收回角色
type RoleReq struct {
	UID  uint64 `json:"uid" binding:"required"`
	Role string `json:"role" binding:"required" validate:"oneof=ADMIN CHAT_MANAGER"`
}
