package dto

// FriendApplyReq 申请好友
type FriendApplyReq struct {
	TargetUID uint64 `json:"targetUid" binding:"required"`
	Msg       string `json:"msg" validate:"max=64"`
}

// FriendApproveReq 同意申请
type FriendApproveReq struct {
	ApplyID uint64 `json:"applyId" binding:"required"`
}

// FriendDeleteReq 删除好友
type FriendDeleteReq struct {
	TargetUID uint64 `json:"targetUid" binding:"required"`
}

// FriendApplyResp 申请列表项
type FriendApplyResp struct {
	ApplyID uint64 `json:"applyId"`
	UID     uint64 `json:"uid"`
	Type    int8   `json:"type"`
	Msg     string `json:"msg"`
	Status  int8   `json:"status"`
}

// FriendUnreadResp 未读申请数
type FriendUnreadResp struct {
	UnreadCount int64 `json:"unReadCount"`
}

// FriendApplyPush 好友申请推送
type FriendApplyPush struct {
	UID         uint64 `json:"uid"`
	UnreadCount int64  `json:"unreadCount"`
}

// FriendResp 好友列表项
type FriendResp struct {
	UID          uint64 `json:"uid"`
	ActiveStatus int8   `json:"activeStatus"`
}
