package service

import (
	"Mallchat/internal/model"
	"Mallchat/internal/repository"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// SystemMsgHandler 系统消息，body 为一段纯文本
type SystemMsgHandler struct{}

func NewSystemMsgHandler() MsgHandler {
	return &SystemMsgHandler{}
}

func (h *SystemMsgHandler) Type() int8 {
	return model.MsgTypeSystem
}

func (h *SystemMsgHandler) CheckMsg(_ context.Context, body json.RawMessage, _, _ uint64) (any, error) {
	var content string
	if err := json.Unmarshal(body, &content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMsgContentInvalid, err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrMsgContentInvalid
	}
	return content, nil
}

func (h *SystemMsgHandler) SaveMsg(ctx context.Context, tx repository.MessageRepo, msg *model.Message, body any) error {
	msg.Content = body.(string)
	return tx.UpdateMessage(ctx, msg)
}

func (h *SystemMsgHandler) ShowMsg(_ context.Context, msg *model.Message) any {
	return msg.Content
}

func (h *SystemMsgHandler) ShowReplyMsg(msg *model.Message) any {
	return msg.Content
}

func (h *SystemMsgHandler) ShowContactMsg(msg *model.Message) string {
	return msg.Content
}

// RecallMsgHandler 撤回消息只能由撤回操作产生，不能直接发送
type RecallMsgHandler struct {
	userRepo repository.UserRepo
}

func NewRecallMsgHandler(userRepo repository.UserRepo) MsgHandler {
	return &RecallMsgHandler{userRepo: userRepo}
}

func (h *RecallMsgHandler) Type() int8 {
	return model.MsgTypeRecall
}

func (h *RecallMsgHandler) CheckMsg(context.Context, json.RawMessage, uint64, uint64) (any, error) {
	return nil, ErrMsgTypeInvalid
}

func (h *RecallMsgHandler) SaveMsg(context.Context, repository.MessageRepo, *model.Message, any) error {
	return ErrMsgTypeInvalid
}

func (h *RecallMsgHandler) ShowMsg(ctx context.Context, msg *model.Message) any {
	recall := msg.Extra.Recall
	if recall == nil {
		return "撤回了一条消息"
	}
	name := ""
	if user, err := h.userRepo.GetUserById(ctx, recall.RecallUID); err == nil && user != nil {
		name = user.Name
	}
	if recall.RecallUID == msg.FromUID {
		return fmt.Sprintf("\"%s\"撤回了一条消息", name)
	}
	return fmt.Sprintf("管理员\"%s\"撤回了一条成员消息", name)
}

func (h *RecallMsgHandler) ShowReplyMsg(*model.Message) any {
	return "原消息已被撤回"
}

func (h *RecallMsgHandler) ShowContactMsg(*model.Message) string {
	return "撤回了一条消息"
}
