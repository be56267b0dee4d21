package dto

import "time"

// GroupCreateReq 创建群聊
type GroupCreateReq struct {
	UIDList []uint64 `json:"uidList" binding:"required" validate:"required,min=1,max=50"`
}

// GroupCreateResp 创建结果
type GroupCreateResp struct {
	RoomID uint64 `json:"roomId"`
}

// GroupInviteReq 邀请成员
type GroupInviteReq struct {
	RoomID  uint64   `json:"roomId" binding:"required"`
	UIDList []uint64 `json:"uidList" binding:"required" validate:"required,min=1,max=50"`
}

// GroupRemoveReq 移除成员
type GroupRemoveReq struct {
	RoomID uint64 `json:"roomId" binding:"required"`
	UID    uint64 `json:"uid" binding:"required"`
}

// GroupExitReq 退出群聊
type GroupExitReq struct {
	RoomID uint64 `json:"roomId" binding:"required"`
}

// 成员变动类型
const (
	MemberChangeAdd    = 1
	MemberChangeRemove = 2
)

// MemberChangePush 成员变动推送
type MemberChangePush struct {
	RoomID       uint64    `json:"roomId"`
	UID          uint64    `json:"uid"`
	ChangeType   int       `json:"changeType"`
	ActiveStatus int8      `json:"activeStatus"`
	LastOptTime  time.Time `json:"lastOptTime"`
}

// GroupMemberResp 群成员
type GroupMemberResp struct {
	UID          uint64    `json:"uid"`
	Role         int8      `json:"roleId"`
	ActiveStatus int8      `json:"activeStatus"`
	LastOptTime  time.Time `json:"lastOptTime"`
}

// MemberPageReq 群成员列表
type MemberPageReq struct {
	RoomID uint64 `form:"roomId" binding:"required"`
}

// ContactResp 会话列表项
type ContactResp struct {
	RoomID      uint64    `json:"roomId"`
	Type        int8      `json:"type"`
	HotFlag     int8      `json:"hotFlag"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar"`
	Text        string    `json:"text"`
	ActiveTime  time.Time `json:"activeTime"`
	UnreadCount int64     `json:"unreadCount"`
}
