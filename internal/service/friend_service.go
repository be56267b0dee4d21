package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/util"
	"Mallchat/internal/repository"
	"context"
	log "log/slog"

	"github.com/goccy/go-json"
)

const (
	defaultFriendPageSize = 20
	friendGreeting        = "我们已经是好友了，开始聊天吧"
)

type FriendService interface {
	Apply(ctx context.Context, uid uint64, req *dto.FriendApplyReq) error
	Approve(ctx context.Context, uid uint64, req *dto.FriendApproveReq) error
	Delete(ctx context.Context, uid, targetUID uint64) error
	GetUnread(ctx context.Context, uid uint64) (*dto.FriendUnreadResp, error)
	GetApplyPage(ctx context.Context, uid uint64, req *dto.CursorPageReq) (*dto.CursorPageResp[*dto.FriendApplyResp], error)
	GetFriendPage(ctx context.Context, uid uint64, req *dto.CursorPageReq) (*dto.CursorPageResp[*dto.FriendResp], error)
}

type FriendServiceImpl struct {
	friendRepo  repository.FriendRepo
	userRepo    repository.UserRepo
	roomRepo    repository.RoomRepo
	chatService ChatService
	bus         event.Bus
	lockOpts    LockOptions
}

func NewFriendService(
	friendRepo repository.FriendRepo,
	userRepo repository.UserRepo,
	roomRepo repository.RoomRepo,
	chatService ChatService,
	bus event.Bus,
	lockOpts LockOptions,
) FriendService {
	return &FriendServiceImpl{
		friendRepo:  friendRepo,
		userRepo:    userRepo,
		roomRepo:    roomRepo,
		chatService: chatService,
		bus:         bus,
		lockOpts:    lockOpts,
	}
}

// Apply 对方已向自己发起申请时直接同意
func (s *FriendServiceImpl) Apply(ctx context.Context, uid uint64, req *dto.FriendApplyReq) error {
	if req.TargetUID == uid {
		return ErrApplySelf
	}
	target, err := s.userRepo.GetUserById(ctx, req.TargetUID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUserNotFound
	}

	lock, err := acquireLock(ctx, consts.FriendLock+model.FriendRoomKey(uid, req.TargetUID), s.lockOpts)
	if err != nil {
		return err
	}
	defer lock.Release()

	isFriend, err := s.friendRepo.IsFriend(ctx, uid, req.TargetUID)
	if err != nil {
		return err
	}
	if isFriend {
		return ErrAlreadyFriend
	}
	pending, err := s.friendRepo.GetPendingApply(ctx, uid, req.TargetUID)
	if err != nil {
		return err
	}
	if pending != nil {
		log.InfoContext(ctx, "好友申请已存在", "uid", uid, "targetUid", req.TargetUID)
		return nil
	}
	reverse, err := s.friendRepo.GetPendingApply(ctx, req.TargetUID, uid)
	if err != nil {
		return err
	}
	if reverse != nil {
		return s.approve(ctx, uid, reverse)
	}

	apply := &model.UserApply{
		UID:        uid,
		Type:       model.ApplyTypeAddFriend,
		TargetID:   req.TargetUID,
		Msg:        req.Msg,
		Status:     model.ApplyStatusWaiting,
		ReadStatus: model.ApplyUnread,
	}
	if err = s.friendRepo.CreateApply(ctx, apply); err != nil {
		return err
	}
	payload := &FriendApplyEvent{ApplyID: apply.ID, UID: uid, TargetUID: req.TargetUID}
	if err = s.bus.Publish(ctx, event.TopicFriendApply, userKey(req.TargetUID), payload); err != nil {
		log.ErrorContext(ctx, "发布好友申请事件失败", "applyId", apply.ID, "err", err)
	}
	return nil
}

func (s *FriendServiceImpl) Approve(ctx context.Context, uid uint64, req *dto.FriendApproveReq) error {
	apply, err := s.friendRepo.GetApply(ctx, req.ApplyID)
	if err != nil {
		return err
	}
	if apply == nil || apply.TargetID != uid {
		return ErrApplyNotFound
	}
	if apply.Status != model.ApplyStatusWaiting {
		return ErrApplyHandled
	}

	lock, err := acquireLock(ctx, consts.FriendLock+model.FriendRoomKey(apply.UID, apply.TargetID), s.lockOpts)
	if err != nil {
		return err
	}
	defer lock.Release()
	return s.approve(ctx, uid, apply)
}

// approve 写好友关系，恢复或创建单聊房间，再由同意方发一条招呼
func (s *FriendServiceImpl) approve(ctx context.Context, uid uint64, apply *model.UserApply) error {
	ok, err := s.friendRepo.ApproveApply(ctx, apply)
	if err != nil {
		return err
	}
	if !ok {
		return ErrApplyHandled
	}
	roomID, err := s.restoreRoom(ctx, apply.UID, apply.TargetID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(&dto.TextMsgReq{Content: friendGreeting})
	if err != nil {
		return err
	}
	msgReq := &dto.ChatMessageReq{RoomID: roomID, MsgType: model.MsgTypeText, Body: body}
	if _, err = s.chatService.SendMsg(ctx, uid, msgReq); err != nil {
		log.WarnContext(ctx, "发送好友招呼失败", "roomId", roomID, "err", err)
	}
	return nil
}

func (s *FriendServiceImpl) restoreRoom(ctx context.Context, uidA, uidB uint64) (uint64, error) {
	key := model.FriendRoomKey(uidA, uidB)
	friend, err := s.roomRepo.GetRoomFriendByKey(ctx, key)
	if err != nil {
		return 0, err
	}
	if friend != nil {
		if friend.Status != model.RoomFriendNormal {
			if err = s.roomRepo.UpdateFriendRoomStatus(ctx, key, model.RoomFriendNormal); err != nil {
				return 0, err
			}
		}
		return friend.RoomID, nil
	}
	friend, err = s.roomRepo.CreateFriendRoom(ctx, uidA, uidB)
	if err != nil {
		if repository.IsDuplicateKeyErr(err) {
			return s.restoreRoom(ctx, uidA, uidB)
		}
		return 0, err
	}
	return friend.RoomID, nil
}

// Delete 删除双向好友关系并禁用单聊房间
func (s *FriendServiceImpl) Delete(ctx context.Context, uid, targetUID uint64) error {
	isFriend, err := s.friendRepo.IsFriend(ctx, uid, targetUID)
	if err != nil {
		return err
	}
	if !isFriend {
		return ErrNotFriend
	}
	if err = s.friendRepo.DeleteFriend(ctx, uid, targetUID); err != nil {
		return err
	}
	return s.roomRepo.UpdateFriendRoomStatus(ctx, model.FriendRoomKey(uid, targetUID), model.RoomFriendDisabled)
}

func (s *FriendServiceImpl) GetUnread(ctx context.Context, uid uint64) (*dto.FriendUnreadResp, error) {
	count, err := s.friendRepo.CountUnread(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &dto.FriendUnreadResp{UnreadCount: count}, nil
}

// GetApplyPage 返回的申请同时标记为已读
func (s *FriendServiceImpl) GetApplyPage(ctx context.Context, uid uint64, req *dto.CursorPageReq) (*dto.CursorPageResp[*dto.FriendApplyResp], error) {
	cursorID, err := util.DecodeIDCursor(req.Cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	size := util.NormalizePageSize(req.PageSize, defaultFriendPageSize)
	applies, err := s.friendRepo.PageApplies(ctx, uid, cursorID, size)
	if err != nil {
		return nil, err
	}

	resp := &dto.CursorPageResp[*dto.FriendApplyResp]{
		IsLast: len(applies) < size,
		List:   make([]*dto.FriendApplyResp, 0, len(applies)),
	}
	ids := make([]uint64, 0, len(applies))
	for _, apply := range applies {
		ids = append(ids, apply.ID)
		resp.List = append(resp.List, &dto.FriendApplyResp{
			ApplyID: apply.ID,
			UID:     apply.UID,
			Type:    apply.Type,
			Msg:     apply.Msg,
			Status:  apply.Status,
		})
	}
	if len(applies) > 0 && !resp.IsLast {
		resp.Cursor = util.EncodeIDCursor(applies[len(applies)-1].ID)
	}
	if err = s.friendRepo.MarkRead(ctx, uid, ids); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *FriendServiceImpl) GetFriendPage(ctx context.Context, uid uint64, req *dto.CursorPageReq) (*dto.CursorPageResp[*dto.FriendResp], error) {
	cursorID, err := util.DecodeIDCursor(req.Cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	size := util.NormalizePageSize(req.PageSize, defaultFriendPageSize)
	friends, err := s.friendRepo.PageFriends(ctx, uid, cursorID, size)
	if err != nil {
		return nil, err
	}
	uids := make([]uint64, 0, len(friends))
	for _, friend := range friends {
		uids = append(uids, friend.FriendUID)
	}
	users, err := s.userRepo.GetUserByIds(ctx, uids)
	if err != nil {
		return nil, err
	}
	active := make(map[uint64]int8, len(users))
	for _, user := range users {
		active[user.ID] = user.Active
	}

	resp := &dto.CursorPageResp[*dto.FriendResp]{
		IsLast: len(friends) < size,
		List:   make([]*dto.FriendResp, 0, len(friends)),
	}
	for _, friend := range friends {
		status, ok := active[friend.FriendUID]
		if !ok {
			continue
		}
		resp.List = append(resp.List, &dto.FriendResp{UID: friend.FriendUID, ActiveStatus: status})
	}
	if len(friends) > 0 && !resp.IsLast {
		resp.Cursor = util.EncodeIDCursor(friends[len(friends)-1].ID)
	}
	return resp, nil
}
