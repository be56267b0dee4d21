package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/ipgeo"
	"Mallchat/internal/pkg/registry"
	"Mallchat/internal/pkg/worker"
	"Mallchat/internal/pkg/ws"
	"Mallchat/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/jinzhu/copier"
)

// FanoutOptions 推送与副作用参数
type FanoutOptions struct {
	MarkBadgeThreshold int64
	IPGeoRetry         worker.RetryPolicy
}

// FanoutService 订阅领域事件，计算推送对象并投递
type FanoutService interface {
	Register(d *event.Dispatcher)
}

type FanoutServiceImpl struct {
	roomRepo    repository.RoomRepo
	contactRepo repository.ContactRepo
	userRepo    repository.UserRepo
	msgRepo     repository.MessageRepo
	markRepo    repository.MessageMarkRepo
	friendRepo  repository.FriendRepo
	registry    registry.Registry
	fabric      ws.Fabric
	submitter   TaskSubmitter
	itemService ItemService
	resolver    ipgeo.Resolver
	opts        FanoutOptions
}

func NewFanoutService(
	roomRepo repository.RoomRepo,
	contactRepo repository.ContactRepo,
	userRepo repository.UserRepo,
	msgRepo repository.MessageRepo,
	markRepo repository.MessageMarkRepo,
	friendRepo repository.FriendRepo,
	reg registry.Registry,
	fabric ws.Fabric,
	submitter TaskSubmitter,
	itemService ItemService,
	resolver ipgeo.Resolver,
	opts FanoutOptions,
) FanoutService {
	return &FanoutServiceImpl{
		roomRepo:    roomRepo,
		contactRepo: contactRepo,
		userRepo:    userRepo,
		msgRepo:     msgRepo,
		markRepo:    markRepo,
		friendRepo:  friendRepo,
		registry:    reg,
		fabric:      fabric,
		submitter:   submitter,
		itemService: itemService,
		resolver:    resolver,
		opts:        opts,
	}
}

// Register 同一主题的监听按注册顺序执行
func (s *FanoutServiceImpl) Register(d *event.Dispatcher) {
	d.On(event.TopicMessageSend, "room.refresh", s.onMsgSendRoom)
	d.On(event.TopicMessageSend, "contact.refresh", s.onMsgSendContact)
	d.On(event.TopicMessageSend, "push.message", s.onMsgSendPush)

	d.On(event.TopicMessageRecall, "push.recall", s.onMsgRecall)

	d.On(event.TopicMessageMark, "item.badge", s.onMsgMarkBadge)
	d.On(event.TopicMessageMark, "push.mark", s.onMsgMarkPush)

	d.On(event.TopicMemberChange, "push.member", s.onMemberChange)
	d.On(event.TopicFriendApply, "push.apply", s.onFriendApply)

	d.On(event.TopicUserOnline, "user.online", s.onUserOnline)
	d.On(event.TopicUserOnline, "push.online", s.onUserStatusPush)
	d.On(event.TopicUserOffline, "user.offline", s.onUserOffline)
	d.On(event.TopicUserOffline, "push.offline", s.onUserStatusPush)
}

func (s *FanoutServiceImpl) onMsgSendRoom(ctx context.Context, evt *event.Event) error {
	var p MsgSendEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	return s.roomRepo.RefreshActive(ctx, p.RoomID, p.MsgID, p.SendTime)
}

// onMsgSendContact 全员房间不写会话记录
func (s *FanoutServiceImpl) onMsgSendContact(ctx context.Context, evt *event.Event) error {
	var p MsgSendEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	room, err := s.roomRepo.GetRoom(ctx, p.RoomID)
	if err != nil || room == nil || room.IsBroadcast() {
		return err
	}
	uids, err := roomMemberUIDs(ctx, s.roomRepo, room)
	if err != nil {
		return err
	}
	return s.contactRepo.RefreshOrCreate(ctx, room.ID, uids, p.MsgID, p.SendTime)
}

func (s *FanoutServiceImpl) onMsgSendPush(ctx context.Context, evt *event.Event) error {
	var p MsgSendEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	return s.pushToRoom(ctx, p.RoomID, &ws.Frame{Type: ws.RespMessage, Data: p.View})
}

func (s *FanoutServiceImpl) onMsgRecall(ctx context.Context, evt *event.Event) error {
	var p MsgRecallEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	data := &dto.MsgRecallPush{MsgID: p.MsgID, RoomID: p.RoomID, RecallUID: p.RecallUID}
	return s.pushToRoom(ctx, p.RoomID, &ws.Frame{Type: ws.RespRecall, Data: data})
}

// onMsgMarkBadge 点赞数达到阈值给消息作者发徽章
func (s *FanoutServiceImpl) onMsgMarkBadge(ctx context.Context, evt *event.Event) error {
	var p MsgMarkEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	if p.MarkType != model.MarkTypeLike || p.ActType != model.MarkActConfirm {
		return nil
	}
	count, err := s.markRepo.CountByMsg(ctx, p.MsgID, model.MarkTypeLike)
	if err != nil {
		return err
	}
	if count < s.opts.MarkBadgeThreshold {
		return nil
	}
	msg, err := s.msgRepo.GetMessage(ctx, p.MsgID)
	if err != nil || msg == nil {
		return err
	}
	key := fmt.Sprintf("%d_%d_%d", consts.ItemLikeBadge, p.UID, p.MsgID)
	_, err = s.itemService.Grant(ctx, msg.FromUID, consts.ItemLikeBadge, key)
	return err
}

func (s *FanoutServiceImpl) onMsgMarkPush(ctx context.Context, evt *event.Event) error {
	var p MsgMarkEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	count, err := s.markRepo.CountByMsg(ctx, p.MsgID, p.MarkType)
	if err != nil {
		return err
	}
	data := &dto.MsgMarkPush{MarkList: []dto.MsgMarkItem{{
		UID:       p.UID,
		MsgID:     p.MsgID,
		MarkType:  p.MarkType,
		MarkCount: count,
		ActType:   p.ActType,
	}}}
	return s.pushToGroup(ctx, &ws.Frame{Type: ws.RespMark, Data: data})
}

// onMemberChange 通知当前成员与本次变动的成员
func (s *FanoutServiceImpl) onMemberChange(ctx context.Context, evt *event.Event) error {
	var p MemberChangeEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	members, err := s.roomRepo.GetMemberUIDs(ctx, p.GroupID)
	if err != nil {
		return err
	}
	users, err := s.userRepo.GetUserByIds(ctx, p.UIDs)
	if err != nil {
		return err
	}
	receivers := append(members, p.UIDs...)
	for _, user := range users {
		data := &dto.MemberChangePush{
			RoomID:       p.RoomID,
			UID:          user.ID,
			ChangeType:   p.ChangeType,
			ActiveStatus: user.Active,
			LastOptTime:  user.LastOptTime,
		}
		if err = s.pushToUsers(ctx, receivers, &ws.Frame{Type: ws.RespMemberChange, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

func (s *FanoutServiceImpl) onFriendApply(ctx context.Context, evt *event.Event) error {
	var p FriendApplyEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	unread, err := s.friendRepo.CountUnread(ctx, p.TargetUID)
	if err != nil {
		return err
	}
	data := &dto.FriendApplyPush{UID: p.UID, UnreadCount: unread}
	return s.pushToUsers(ctx, []uint64{p.TargetUID}, &ws.Frame{Type: ws.RespApply, Data: data})
}

func (s *FanoutServiceImpl) onUserOnline(ctx context.Context, evt *event.Event) error {
	var p UserStatusEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	user, err := s.userRepo.GetUserById(ctx, p.UID)
	if err != nil || user == nil {
		return err
	}
	user.IPInfo.RefreshIP(p.IP)
	if err = s.userRepo.UpdateActive(ctx, user.ID, model.UserActiveOnline, p.Time, user.IPInfo); err != nil {
		return err
	}
	if s.resolver != nil && user.IPInfo.NeedRefreshDetail() {
		uid, ip := user.ID, user.IPInfo.UpdateIP
		err = s.submitter.SubmitRetry(ctx, "ipgeo:refresh", func(taskCtx context.Context) error {
			return s.refreshIPDetail(taskCtx, uid, ip)
		}, s.opts.IPGeoRetry)
		if err != nil {
			log.WarnContext(ctx, "IP 归属地任务投递失败", "uid", uid, "err", err)
		}
	}
	return nil
}

func (s *FanoutServiceImpl) refreshIPDetail(ctx context.Context, uid uint64, ip string) error {
	detail, err := s.resolver.Resolve(ctx, ip)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetUserById(ctx, uid)
	if err != nil || user == nil {
		return err
	}
	ipDetail := &model.IPDetail{}
	if err = copier.Copy(ipDetail, detail); err != nil {
		return err
	}
	user.IPInfo.ApplyDetail(ipDetail)
	return s.userRepo.UpdateIPInfo(ctx, uid, user.IPInfo)
}

func (s *FanoutServiceImpl) onUserOffline(ctx context.Context, evt *event.Event) error {
	var p UserStatusEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	user, err := s.userRepo.GetUserById(ctx, p.UID)
	if err != nil || user == nil {
		return err
	}
	return s.userRepo.UpdateActive(ctx, user.ID, model.UserActiveOffline, p.Time, user.IPInfo)
}

func (s *FanoutServiceImpl) onUserStatusPush(ctx context.Context, evt *event.Event) error {
	var p UserStatusEvent
	if err := evt.Decode(&p); err != nil {
		return err
	}
	active := model.UserActiveOnline
	if evt.Topic == event.TopicUserOffline {
		active = model.UserActiveOffline
	}
	onlineNum, err := s.userRepo.CountOnline(ctx)
	if err != nil {
		return err
	}
	data := &dto.OnlineOfflineNotify{
		ChangeList: []dto.ChatMemberResp{{UID: p.UID, ActiveStatus: active, LastOptTime: p.Time}},
		OnlineNum:  onlineNum,
	}
	return s.pushToGroup(ctx, &ws.Frame{Type: ws.RespOnlineOfflineNotify, Data: data})
}

// pushToRoom 全员房间走广播组，其余房间逐个成员投递
func (s *FanoutServiceImpl) pushToRoom(ctx context.Context, roomID uint64, frame *ws.Frame) error {
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		log.WarnContext(ctx, "推送的房间不存在", "roomId", roomID)
		return nil
	}
	if room.IsBroadcast() {
		return s.pushToGroup(ctx, frame)
	}
	uids, err := roomMemberUIDs(ctx, s.roomRepo, room)
	if err != nil {
		return err
	}
	return s.pushToUsers(ctx, uids, frame)
}

func (s *FanoutServiceImpl) pushToGroup(ctx context.Context, frame *ws.Frame) error {
	env, err := ws.NewPushEnvelope(frame)
	if err != nil {
		return err
	}
	return s.fabric.PushToGroup(ctx, consts.BroadcastGroup, env)
}

func (s *FanoutServiceImpl) pushToUsers(ctx context.Context, uids []uint64, frame *ws.Frame) error {
	env, err := ws.NewPushEnvelope(frame)
	if err != nil {
		return err
	}
	seen := make(map[uint64]struct{}, len(uids))
	for _, uid := range uids {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		target := uid
		err = s.submitter.Submit(ctx, "push:user", func(taskCtx context.Context) error {
			return s.pushToUser(taskCtx, target, env)
		})
		if err != nil {
			log.WarnContext(ctx, "推送任务投递失败", "uid", target, "err", err)
		}
	}
	return nil
}

// pushToUser 用户不在线或句柄已失效都视为投递未命中
func (s *FanoutServiceImpl) pushToUser(ctx context.Context, uid uint64, env *ws.Envelope) error {
	handle, err := s.registry.Lookup(ctx, uid)
	if err != nil {
		return err
	}
	if handle == "" {
		log.DebugContext(ctx, "用户不在线，跳过推送", "uid", uid)
		return nil
	}
	err = s.fabric.PushToHandle(ctx, handle, env)
	if errors.Is(err, ws.ErrHandleGone) {
		log.InfoContext(ctx, "连接句柄已失效，跳过推送", "uid", uid, "handle", handle)
		return nil
	}
	return err
}
