package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/sensitive"
	"Mallchat/internal/pkg/util"
	"Mallchat/internal/repository"
	"context"
	log "log/slog"

	"github.com/goccy/go-json"
)

type TextMsgHandler struct {
	userRepo     repository.UserRepo
	msgRepo      repository.MessageRepo
	filter       *sensitive.Filter
	registry     *MsgHandlerRegistry
	gapJumpLimit int
}

func NewTextMsgHandler(
	userRepo repository.UserRepo,
	msgRepo repository.MessageRepo,
	filter *sensitive.Filter,
	registry *MsgHandlerRegistry,
	gapJumpLimit int,
) MsgHandler {
	return &TextMsgHandler{
		userRepo:     userRepo,
		msgRepo:      msgRepo,
		filter:       filter,
		registry:     registry,
		gapJumpLimit: gapJumpLimit,
	}
}

func (h *TextMsgHandler) Type() int8 {
	return model.MsgTypeText
}

func (h *TextMsgHandler) CheckMsg(ctx context.Context, body json.RawMessage, roomID, uid uint64) (any, error) {
	req, err := decodeMsgBody[dto.TextMsgReq](body)
	if err != nil {
		return nil, err
	}

	if req.ReplyMsgID != nil {
		reply, err := h.msgRepo.GetMessage(ctx, *req.ReplyMsgID)
		if err != nil {
			return nil, err
		}
		if reply == nil {
			return nil, ErrReplyMsgInvalid
		}
		if reply.RoomID != roomID {
			return nil, ErrReplyCrossRoom
		}
	}

	if len(req.AtUIDList) > 0 {
		req.AtUIDList = util.UniqueUint64(req.AtUIDList)
		users, err := h.userRepo.GetUserByIds(ctx, req.AtUIDList)
		if err != nil {
			return nil, err
		}
		if len(users) != len(req.AtUIDList) {
			return nil, ErrAtUserInvalid
		}
	}

	if h.filter != nil {
		req.Content = h.filter.Filter(req.Content)
	}
	return req, nil
}

func (h *TextMsgHandler) SaveMsg(ctx context.Context, tx repository.MessageRepo, msg *model.Message, body any) error {
	req := body.(*dto.TextMsgReq)
	msg.Content = req.Content
	msg.Extra.AtUIDList = req.AtUIDList

	if req.ReplyMsgID != nil {
		reply, err := tx.GetMessage(ctx, *req.ReplyMsgID)
		if err != nil {
			return err
		}
		if reply != nil {
			gap, err := tx.CountBetween(ctx, msg.RoomID, reply.ID, msg.ID)
			if err != nil {
				return err
			}
			gapCount := int(gap)
			msg.ReplyMsgID = req.ReplyMsgID
			msg.GapCount = &gapCount
		}
	}
	return tx.UpdateMessage(ctx, msg)
}

func (h *TextMsgHandler) ShowMsg(ctx context.Context, msg *model.Message) any {
	resp := &dto.TextMsgResp{
		Content:       msg.Content,
		URLContentMap: msg.Extra.URLContentMap,
		AtUIDList:     msg.Extra.AtUIDList,
	}
	if msg.ReplyMsgID == nil {
		return resp
	}

	reply, err := h.msgRepo.GetMessage(ctx, *msg.ReplyMsgID)
	if err != nil {
		log.WarnContext(ctx, "查询回复消息失败", "msgId", *msg.ReplyMsgID, "err", err)
		return resp
	}
	if reply == nil {
		return resp
	}

	gapCount := 0
	if msg.GapCount != nil {
		gapCount = *msg.GapCount
	}
	replyMsg := &dto.ReplyMsg{
		ID:       reply.ID,
		UID:      reply.FromUID,
		Type:     reply.Type,
		GapCount: gapCount,
	}
	if gapCount < h.gapJumpLimit {
		replyMsg.CanCallback = 1
	}
	if handler, ok := h.registry.Get(reply.Type); ok {
		replyMsg.Body = handler.ShowReplyMsg(reply)
	}
	if user, err := h.userRepo.GetUserById(ctx, reply.FromUID); err == nil && user != nil {
		replyMsg.Username = user.Name
	}
	resp.Reply = replyMsg
	return resp
}

func (h *TextMsgHandler) ShowReplyMsg(msg *model.Message) any {
	return msg.Content
}

func (h *TextMsgHandler) ShowContactMsg(msg *model.Message) string {
	return msg.Content
}
