package ws

import "github.com/goccy/go-json"

// 客户端请求类型
const (
	ReqLogin     = 1
	ReqHeartbeat = 2
	ReqAuthorize = 3
)

// 服务端推送类型
const (
	RespLoginURL            = 1
	RespLoginScanSuccess    = 2
	RespLoginSuccess        = 3
	RespMessage             = 4
	RespOnlineOfflineNotify = 5
	RespInvalidateToken     = 6
	RespBlack               = 7
	RespMark                = 8
	RespRecall              = 9
	RespApply               = 10
	RespMemberChange        = 11
)

// Request 客户端上行帧
type Request struct {
	Type int             `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AuthorizeData 鉴权请求携带的数据
type AuthorizeData struct {
	Token string `json:"token"`
}

// Frame 服务端下行帧
type Frame struct {
	Type int `json:"type"`
	Data any `json:"data,omitempty"`
}

// 推送信封操作
const (
	OpPush = "push"
	OpAuth = "auth"
)

// Envelope 经由推送通道传递的信封，auth 操作会把会话标记为已登录
type Envelope struct {
	Op   string          `json:"op"`
	UID  uint64          `json:"uid,omitempty"`
	Data json.RawMessage `json:"data"`
}

// NewPushEnvelope 包装一条普通推送
func NewPushEnvelope(frame *Frame) (*Envelope, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}
	return &Envelope{Op: OpPush, Data: data}, nil
}

// NewAuthEnvelope 包装登录成功推送
func NewAuthEnvelope(uid uint64, frame *Frame) (*Envelope, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}
	return &Envelope{Op: OpAuth, UID: uid, Data: data}, nil
}
