package service

import (
	"Mallchat/internal/api/dto"
	"strconv"
	"time"
)

// MsgSendEvent 消息发送成功，携带渲染后的消息
type MsgSendEvent struct {
	MsgID    uint64               `json:"msgId"`
	RoomID   uint64               `json:"roomId"`
	FromUID  uint64               `json:"fromUid"`
	SendTime time.Time            `json:"sendTime"`
	View     *dto.ChatMessageResp `json:"view"`
}

// MsgRecallEvent 消息被撤回
type MsgRecallEvent struct {
	MsgID     uint64 `json:"msgId"`
	RoomID    uint64 `json:"roomId"`
	RecallUID uint64 `json:"recallUid"`
}

// MsgMarkEvent 消息标记变化
type MsgMarkEvent struct {
	UID      uint64 `json:"uid"`
	MsgID    uint64 `json:"msgId"`
	RoomID   uint64 `json:"roomId"`
	MarkType int8   `json:"markType"`
	ActType  int8   `json:"actType"`
}

// MemberChangeEvent 群成员变动
type MemberChangeEvent struct {
	RoomID     uint64   `json:"roomId"`
	GroupID    uint64   `json:"groupId"`
	UIDs       []uint64 `json:"uids"`
	ChangeType int      `json:"changeType"`
}

// FriendApplyEvent 好友申请
type FriendApplyEvent struct {
	ApplyID   uint64 `json:"applyId"`
	UID       uint64 `json:"uid"`
	TargetUID uint64 `json:"targetUid"`
}

// UserStatusEvent 上线或下线
type UserStatusEvent struct {
	UID  uint64    `json:"uid"`
	IP   string    `json:"ip,omitempty"`
	Time time.Time `json:"time"`
}

func roomKey(roomID uint64) string {
	return "room:" + strconv.FormatUint(roomID, 10)
}

func userKey(uid uint64) string {
	return "user:" + strconv.FormatUint(uid, 10)
}
