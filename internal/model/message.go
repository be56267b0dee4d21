package model

import "time"

// 消息类型
const (
	MsgTypeText   int8 = 1
	MsgTypeRecall int8 = 2
	MsgTypeImg    int8 = 3
	MsgTypeFile   int8 = 4
	MsgTypeSound  int8 = 5
	MsgTypeVideo  int8 = 6
	MsgTypeEmoji  int8 = 7
	MsgTypeSystem int8 = 8
)

// 消息状态
const (
	MsgStatusNormal int8 = 0
	MsgStatusDelete int8 = 1
)

type Message struct {
	ID         uint64 `gorm:"primaryKey"`
	RoomID     uint64 `gorm:"not null;index:idx_msg_room_id"`
	FromUID    uint64 `gorm:"not null;index:idx_from_uid"`
	Content    string `gorm:"type:varchar(1024)"`
	ReplyMsgID *uint64
	Status     int8 `gorm:"not null;default:0"`
	GapCount   *int
	Type       int8         `gorm:"not null;default:1"`
	Extra      MessageExtra `gorm:"type:json;serializer:json"`
	CreatedAt  time.Time    `gorm:"index:idx_created_at"`
	UpdatedAt  time.Time
}

func (Message) TableName() string {
	return "messages"
}

// MessageExtra 各类型消息的扩展内容
type MessageExtra struct {
	URLContentMap map[string]*URLInfo `json:"urlContentMap,omitempty"`
	AtUIDList     []uint64            `json:"atUidList,omitempty"`
	Recall        *MsgRecall          `json:"recall,omitempty"`
	ImgMsg        *ImgMsg             `json:"imgMsgDTO,omitempty"`
	FileMsg       *FileMsg            `json:"fileMsg,omitempty"`
	SoundMsg      *SoundMsg           `json:"soundMsgDTO,omitempty"`
	VideoMsg      *VideoMsg           `json:"videoMsgDTO,omitempty"`
	EmojisMsg     *EmojisMsg          `json:"emojisMsgDTO,omitempty"`
}

type URLInfo struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type MsgRecall struct {
	RecallUID  uint64    `json:"recallUid"`
	RecallTime time.Time `json:"recallTime"`
}

type ImgMsg struct {
	Size   int64  `json:"size" validate:"gte=0"`
	URL    string `json:"url" validate:"required,url"`
	Width  int    `json:"width" validate:"gte=0"`
	Height int    `json:"height" validate:"gte=0"`
}

type FileMsg struct {
	Size     int64  `json:"size" validate:"gte=0"`
	URL      string `json:"url" validate:"required,url"`
	FileName string `json:"fileName" validate:"required,max=255"`
}

type SoundMsg struct {
	Size   int64  `json:"size" validate:"gte=0"`
	URL    string `json:"url" validate:"required,url"`
	Second int    `json:"second" validate:"gte=0,lte=60"`
}

type VideoMsg struct {
	Size        int64  `json:"size" validate:"gte=0"`
	URL         string `json:"url" validate:"required,url"`
	ThumbWidth  int    `json:"thumbWidth" validate:"gte=0"`
	ThumbHeight int    `json:"thumbHeight" validate:"gte=0"`
	ThumbSize   int64  `json:"thumbSize" validate:"gte=0"`
	ThumbURL    string `json:"thumbUrl" validate:"omitempty,url"`
}

type EmojisMsg struct {
	URL string `json:"url" validate:"required,url"`
}

// 标记类型
const (
	MarkTypeLike    int8 = 1
	MarkTypeDislike int8 = 2
)

// 标记动作
const (
	MarkActConfirm int8 = 1
	MarkActCancel  int8 = 2
)

// MessageMark 每个 (消息, 用户, 类型) 唯一，重复标记即取消
type MessageMark struct {
	ID        uint64 `gorm:"primaryKey"`
	MsgID     uint64 `gorm:"not null;uniqueIndex:idx_msg_uid_type,priority:1"`
	UID       uint64 `gorm:"not null;uniqueIndex:idx_msg_uid_type,priority:2;index:idx_mark_uid"`
	Type      int8   `gorm:"not null;uniqueIndex:idx_msg_uid_type,priority:3"`
	CreatedAt time.Time
}

func (MessageMark) TableName() string {
	return "message_marks"
}

// SensitiveWord 敏感词
type SensitiveWord struct {
	ID   uint64 `gorm:"primaryKey"`
	Word string `gorm:"type:varchar(255);uniqueIndex:idx_word;not null"`
}

func (SensitiveWord) TableName() string {
	return "sensitive_words"
}
