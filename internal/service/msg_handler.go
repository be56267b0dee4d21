package service

import (
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/util"
	"Mallchat/internal/repository"
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// MsgHandler 一种消息类型的校验、保存与展示
type MsgHandler interface {
	Type() int8
	// CheckMsg 校验请求体并返回解析后的 body，供 SaveMsg 使用
	CheckMsg(ctx context.Context, body json.RawMessage, roomID, uid uint64) (any, error)
	// SaveMsg 在发送事务内补全消息内容
	SaveMsg(ctx context.Context, tx repository.MessageRepo, msg *model.Message, body any) error
	ShowMsg(ctx context.Context, msg *model.Message) any
	ShowReplyMsg(msg *model.Message) any
	ShowContactMsg(msg *model.Message) string
}

// MsgHandlerRegistry 消息类型到处理器的映射，启动时构造一次后只读
type MsgHandlerRegistry struct {
	handlers map[int8]MsgHandler
}

func NewMsgHandlerRegistry() *MsgHandlerRegistry {
	return &MsgHandlerRegistry{handlers: make(map[int8]MsgHandler)}
}

func (r *MsgHandlerRegistry) Register(handlers ...MsgHandler) {
	for _, h := range handlers {
		r.handlers[h.Type()] = h
	}
}

func (r *MsgHandlerRegistry) Get(msgType int8) (MsgHandler, bool) {
	h, ok := r.handlers[msgType]
	return h, ok
}

// decodeMsgBody 解析并校验消息体
func decodeMsgBody[T any](body json.RawMessage) (*T, error) {
	v := new(T)
	if len(body) == 0 {
		return nil, ErrMsgContentInvalid
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMsgContentInvalid, err)
	}
	if err := util.ValidateDTO(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMsgContentInvalid, err)
	}
	return v, nil
}
