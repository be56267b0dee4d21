package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/util"
	"Mallchat/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

const defaultMsgPageSize = 20

// ChatOptions 聊天相关参数
type ChatOptions struct {
	RecallWindow time.Duration
	Lock         LockOptions
}

type ChatService interface {
	SendMsg(ctx context.Context, uid uint64, req *dto.ChatMessageReq) (*dto.ChatMessageResp, error)
	SendSystemMsg(ctx context.Context, roomID, uid uint64, content string) (*dto.ChatMessageResp, error)
	GetMsg(ctx context.Context, uid, msgID uint64) (*dto.ChatMessageResp, error)
	GetMsgPage(ctx context.Context, uid uint64, req *dto.MsgPageReq) (*dto.CursorPageResp[*dto.ChatMessageResp], error)
	RecallMsg(ctx context.Context, uid uint64, req *dto.RecallMsgReq) error
	SetMsgMark(ctx context.Context, uid uint64, req *dto.MsgMarkReq) error
}

type ChatServiceImpl struct {
	roomRepo      repository.RoomRepo
	msgRepo       repository.MessageRepo
	markRepo      repository.MessageMarkRepo
	contactRepo   repository.ContactRepo
	userRolesRepo repository.UserRolesRepo
	handlers      *MsgHandlerRegistry
	bus           event.Bus
	opts          ChatOptions
	now           func() time.Time
}

func NewChatService(
	roomRepo repository.RoomRepo,
	msgRepo repository.MessageRepo,
	markRepo repository.MessageMarkRepo,
	contactRepo repository.ContactRepo,
	userRolesRepo repository.UserRolesRepo,
	handlers *MsgHandlerRegistry,
	bus event.Bus,
	opts ChatOptions,
) ChatService {
	s := &ChatServiceImpl{
		roomRepo:      roomRepo,
		msgRepo:       msgRepo,
		markRepo:      markRepo,
		contactRepo:   contactRepo,
		userRolesRepo: userRolesRepo,
		handlers:      handlers,
		bus:           bus,
		opts:          opts,
		now:           time.Now,
	}
	msgRepo.OnSaved(s.onMessageSaved)
	return s
}

func (s *ChatServiceImpl) SendMsg(ctx context.Context, uid uint64, req *dto.ChatMessageReq) (*dto.ChatMessageResp, error) {
	if req.MsgType == model.MsgTypeRecall || req.MsgType == model.MsgTypeSystem {
		return nil, ErrMsgTypeInvalid
	}
	room, err := s.roomRepo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if err = checkRoomAccess(ctx, s.roomRepo, room, uid, false); err != nil {
		return nil, err
	}
	return s.send(ctx, room, uid, req.MsgType, req.Body)
}

// SendSystemMsg 系统提示，不校验发送者是否在房间内
func (s *ChatServiceImpl) SendSystemMsg(ctx context.Context, roomID, uid uint64, content string) (*dto.ChatMessageResp, error) {
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	body, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, room, uid, model.MsgTypeSystem, body)
}

func (s *ChatServiceImpl) send(ctx context.Context, room *model.Room, uid uint64, msgType int8, raw json.RawMessage) (*dto.ChatMessageResp, error) {
	handler, ok := s.handlers.Get(msgType)
	if !ok {
		return nil, ErrMsgTypeInvalid
	}
	body, err := handler.CheckMsg(ctx, raw, room.ID, uid)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		RoomID:  room.ID,
		FromUID: uid,
		Type:    msgType,
		Status:  model.MsgStatusNormal,
	}
	err = s.msgRepo.Transaction(ctx, func(tx repository.MessageRepo) error {
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}
		return handler.SaveMsg(ctx, tx, msg, body)
	})
	if err != nil {
		return nil, err
	}

	view := s.buildView(ctx, msg, handler, dto.MsgMark{})
	payload := &MsgSendEvent{
		MsgID:    msg.ID,
		RoomID:   msg.RoomID,
		FromUID:  msg.FromUID,
		SendTime: msg.CreatedAt,
		View:     view,
	}
	if err = s.bus.Publish(ctx, event.TopicMessageSend, roomKey(room.ID), payload); err != nil {
		log.ErrorContext(ctx, "发布消息发送事件失败", "msgId", msg.ID, "err", err)
	}
	return view, nil
}

func (s *ChatServiceImpl) GetMsg(ctx context.Context, uid, msgID uint64) (*dto.ChatMessageResp, error) {
	msg, err := s.msgRepo.GetMessage(ctx, msgID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.Status != model.MsgStatusNormal {
		return nil, ErrMsgNotFound
	}
	room, err := s.roomRepo.GetRoom(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	if err = checkRoomAccess(ctx, s.roomRepo, room, uid, true); err != nil {
		return nil, err
	}
	views, err := s.buildViews(ctx, uid, []*model.Message{msg})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *ChatServiceImpl) GetMsgPage(ctx context.Context, uid uint64, req *dto.MsgPageReq) (*dto.CursorPageResp[*dto.ChatMessageResp], error) {
	room, err := s.roomRepo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if err = checkRoomAccess(ctx, s.roomRepo, room, uid, true); err != nil {
		return nil, err
	}
	cursorID, err := util.DecodeIDCursor(req.Cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	size := util.NormalizePageSize(req.PageSize, defaultMsgPageSize)

	msgs, err := s.msgRepo.PageByRoom(ctx, room.ID, cursorID, size)
	if err != nil {
		return nil, err
	}
	views, err := s.buildViews(ctx, uid, msgs)
	if err != nil {
		return nil, err
	}

	resp := &dto.CursorPageResp[*dto.ChatMessageResp]{
		IsLast: len(msgs) < size,
		List:   views,
	}
	if len(msgs) > 0 && !resp.IsLast {
		resp.Cursor = util.EncodeIDCursor(msgs[len(msgs)-1].ID)
	}

	if cursorID == 0 && uid > 0 && !room.IsBroadcast() {
		if err = s.contactRepo.UpdateReadTime(ctx, uid, room.ID, s.now()); err != nil {
			log.WarnContext(ctx, "更新会话阅读时间失败", "roomId", room.ID, "uid", uid, "err", err)
		}
	}
	return resp, nil
}

// RecallMsg 管理员不受时间限制，普通成员只能撤回自己在时间窗口内的消息
func (s *ChatServiceImpl) RecallMsg(ctx context.Context, uid uint64, req *dto.RecallMsgReq) error {
	msg, err := s.msgRepo.GetMessage(ctx, req.MsgID)
	if err != nil {
		return err
	}
	if msg == nil || msg.RoomID != req.RoomID || msg.Status != model.MsgStatusNormal {
		return ErrMsgNotFound
	}
	if msg.Type == model.MsgTypeRecall {
		return ErrMsgAlreadyRecalled
	}

	admin, err := s.canAdminRecall(ctx, uid, msg.RoomID)
	if err != nil {
		return err
	}
	if !admin {
		if msg.FromUID != uid {
			return ErrRecallNoPower
		}
		if s.now().Sub(msg.CreatedAt) > s.opts.RecallWindow {
			return ErrRecallExpired
		}
	}

	msg.Type = model.MsgTypeRecall
	msg.Extra.Recall = &model.MsgRecall{
		RecallUID:  uid,
		RecallTime: s.now(),
	}
	return s.msgRepo.UpdateMessage(ctx, msg)
}

func (s *ChatServiceImpl) canAdminRecall(ctx context.Context, uid, roomID uint64) (bool, error) {
	power, err := s.userRolesRepo.HasAnyRole(ctx, uid, consts.RoleAdmin, consts.RoleChatManager)
	if err != nil || power {
		return power, err
	}

	group, err := s.roomRepo.GetRoomGroup(ctx, roomID)
	if err != nil || group == nil {
		return false, err
	}
	member, err := s.roomRepo.GetMember(ctx, group.ID, uid)
	if err != nil || member == nil {
		return false, err
	}
	return member.IsManager(), nil
}

// onMessageSaved 只有撤回类型的保存才会发布撤回事件
func (s *ChatServiceImpl) onMessageSaved(ctx context.Context, msg *model.Message) {
	if msg.Type != model.MsgTypeRecall || msg.Extra.Recall == nil {
		return
	}
	payload := &MsgRecallEvent{
		MsgID:     msg.ID,
		RoomID:    msg.RoomID,
		RecallUID: msg.Extra.Recall.RecallUID,
	}
	if err := s.bus.Publish(ctx, event.TopicMessageRecall, roomKey(msg.RoomID), payload); err != nil {
		log.ErrorContext(ctx, "发布撤回事件失败", "msgId", msg.ID, "err", err)
	}
}

// SetMsgMark 同一用户对同一消息重复标记即取消，点赞与点踩互斥
func (s *ChatServiceImpl) SetMsgMark(ctx context.Context, uid uint64, req *dto.MsgMarkReq) error {
	if req.MarkType != model.MarkTypeLike && req.MarkType != model.MarkTypeDislike {
		return ErrMarkTypeInvalid
	}
	msg, err := s.msgRepo.GetMessage(ctx, req.MsgID)
	if err != nil {
		return err
	}
	if msg == nil || msg.Status != model.MsgStatusNormal {
		return ErrMsgNotFound
	}

	key := consts.MsgMarkLock + util.JoinUint64("_", uid, msg.ID, uint64(req.MarkType))
	lock, err := acquireLock(ctx, key, s.opts.Lock)
	if err != nil {
		return err
	}
	defer lock.Release()

	mark, err := s.markRepo.GetMark(ctx, msg.ID, uid, req.MarkType)
	if err != nil {
		return err
	}

	if mark != nil {
		if err = s.markRepo.DeleteMark(ctx, mark.ID); err != nil {
			return err
		}
		s.publishMark(ctx, uid, msg, req.MarkType, model.MarkActCancel)
		return nil
	}

	err = s.markRepo.CreateMark(ctx, &model.MessageMark{MsgID: msg.ID, UID: uid, Type: req.MarkType})
	if err != nil {
		if repository.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	s.publishMark(ctx, uid, msg, req.MarkType, model.MarkActConfirm)

	opposite := model.MarkTypeDislike
	if req.MarkType == model.MarkTypeDislike {
		opposite = model.MarkTypeLike
	}
	other, err := s.markRepo.GetMark(ctx, msg.ID, uid, opposite)
	if err != nil {
		return err
	}
	if other != nil {
		if err = s.markRepo.DeleteMark(ctx, other.ID); err != nil {
			return err
		}
		s.publishMark(ctx, uid, msg, opposite, model.MarkActCancel)
	}
	return nil
}

func (s *ChatServiceImpl) publishMark(ctx context.Context, uid uint64, msg *model.Message, markType, actType int8) {
	payload := &MsgMarkEvent{
		UID:      uid,
		MsgID:    msg.ID,
		RoomID:   msg.RoomID,
		MarkType: markType,
		ActType:  actType,
	}
	if err := s.bus.Publish(ctx, event.TopicMessageMark, roomKey(msg.RoomID), payload); err != nil {
		log.ErrorContext(ctx, "发布标记事件失败", "msgId", msg.ID, "err", err)
	}
}

func (s *ChatServiceImpl) buildViews(ctx context.Context, uid uint64, msgs []*model.Message) ([]*dto.ChatMessageResp, error) {
	ids := make([]uint64, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
	}

	counts, err := s.markRepo.CountByMsgIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	marks := make(map[uint64]*dto.MsgMark, len(msgs))
	markOf := func(id uint64) *dto.MsgMark {
		m, ok := marks[id]
		if !ok {
			m = &dto.MsgMark{}
			marks[id] = m
		}
		return m
	}
	for _, c := range counts {
		switch c.Type {
		case model.MarkTypeLike:
			markOf(c.MsgID).LikeCount = c.Count
		case model.MarkTypeDislike:
			markOf(c.MsgID).DislikeCount = c.Count
		}
	}
	if uid > 0 {
		userMarks, err := s.markRepo.GetUserMarks(ctx, uid, ids)
		if err != nil {
			return nil, err
		}
		for _, m := range userMarks {
			switch m.Type {
			case model.MarkTypeLike:
				markOf(m.MsgID).UserLike = 1
			case model.MarkTypeDislike:
				markOf(m.MsgID).UserDislike = 1
			}
		}
	}

	views := make([]*dto.ChatMessageResp, 0, len(msgs))
	for _, msg := range msgs {
		handler, ok := s.handlers.Get(msg.Type)
		if !ok {
			return nil, errors.New("unknown message type")
		}
		views = append(views, s.buildView(ctx, msg, handler, *markOf(msg.ID)))
	}
	return views, nil
}

func (s *ChatServiceImpl) buildView(ctx context.Context, msg *model.Message, handler MsgHandler, mark dto.MsgMark) *dto.ChatMessageResp {
	return &dto.ChatMessageResp{
		FromUser: dto.MsgFromUser{UID: msg.FromUID},
		Message: dto.MsgView{
			ID:          msg.ID,
			RoomID:      msg.RoomID,
			SendTime:    msg.CreatedAt,
			Type:        msg.Type,
			Body:        handler.ShowMsg(ctx, msg),
			MessageMark: mark,
		},
	}
}
