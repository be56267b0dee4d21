package dto

import (
	"Mallchat/internal/model"
	"time"

	"github.com/goccy/go-json"
)

// ChatMessageReq 发送消息请求体，Body 的结构由消息类型决定
type ChatMessageReq struct {
	RoomID  uint64          `json:"roomId" binding:"required"`
	MsgType int8            `json:"msgType" binding:"required"`
	Body    json.RawMessage `json:"body" binding:"required"`
}

// TextMsgReq 文本消息
type TextMsgReq struct {
	Content    string   `json:"content" validate:"required,max=1024"`
	ReplyMsgID *uint64  `json:"replyMsgId,omitempty"`
	AtUIDList  []uint64 `json:"atUidList,omitempty" validate:"omitempty,max=10"`
}

// TextMsgResp 文本消息展示
type TextMsgResp struct {
	Content       string                    `json:"content"`
	URLContentMap map[string]*model.URLInfo `json:"urlContentMap,omitempty"`
	AtUIDList     []uint64                  `json:"atUidList,omitempty"`
	Reply         *ReplyMsg                 `json:"reply,omitempty"`
}

// ReplyMsg 被回复的消息，CanCallback 为 1 时前端可跳转
type ReplyMsg struct {
	ID          uint64 `json:"id"`
	UID         uint64 `json:"uid"`
	Username    string `json:"username"`
	Type        int8   `json:"type"`
	Body        any    `json:"body"`
	CanCallback int    `json:"canCallback"`
	GapCount    int    `json:"gapCount"`
}

// ChatMessageResp 消息展示
type ChatMessageResp struct {
	FromUser MsgFromUser `json:"fromUser"`
	Message  MsgView     `json:"message"`
}

type MsgFromUser struct {
	UID uint64 `json:"uid"`
}

type MsgView struct {
	ID          uint64    `json:"id"`
	RoomID      uint64    `json:"roomId"`
	SendTime    time.Time `json:"sendTime"`
	Type        int8      `json:"type"`
	Body        any       `json:"body"`
	MessageMark MsgMark   `json:"messageMark"`
}

// MsgMark 消息标记统计，User* 为当前用户是否标记过
type MsgMark struct {
	LikeCount    int64 `json:"likeCount"`
	UserLike     int   `json:"userLike"`
	DislikeCount int64 `json:"dislikeCount"`
	UserDislike  int   `json:"userDislike"`
}

// RecallMsgReq 撤回消息
type RecallMsgReq struct {
	MsgID  uint64 `json:"msgId" binding:"required"`
	RoomID uint64 `json:"roomId" binding:"required"`
}

// MsgMarkReq 标记消息
type MsgMarkReq struct {
	MsgID    uint64 `json:"msgId" binding:"required"`
	MarkType int8   `json:"markType" binding:"required,oneof=1 2"`
	ActType  int8   `json:"actType" binding:"required,oneof=1 2"`
}

// MsgPageReq 消息分页
type MsgPageReq struct {
	RoomID uint64 `form:"roomId" binding:"required"`
	CursorPageReq
}

// MsgRecallPush 撤回推送
type MsgRecallPush struct {
	MsgID     uint64 `json:"msgId"`
	RoomID    uint64 `json:"roomId"`
	RecallUID uint64 `json:"recallUid"`
}

// MsgMarkPush 标记推送
type MsgMarkPush struct {
	MarkList []MsgMarkItem `json:"markList"`
}

type MsgMarkItem struct {
	UID       uint64 `json:"uid"`
	MsgID     uint64 `json:"msgId"`
	MarkType  int8   `json:"markType"`
	MarkCount int64  `json:"markCount"`
	ActType   int8   `json:"actType"`
}
