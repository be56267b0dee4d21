package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/util"
	"Mallchat/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultContactPageSize = 20

type RoomService interface {
	CreateGroup(ctx context.Context, uid uint64, req *dto.GroupCreateReq) (*dto.GroupCreateResp, error)
	Invite(ctx context.Context, uid uint64, req *dto.GroupInviteReq) error
	RemoveMember(ctx context.Context, uid uint64, req *dto.GroupRemoveReq) error
	Exit(ctx context.Context, uid uint64, req *dto.GroupExitReq) error
	GetMembers(ctx context.Context, uid uint64, req *dto.MemberPageReq) ([]*dto.GroupMemberResp, error)
	GetContactPage(ctx context.Context, uid uint64, req *dto.CursorPageReq) (*dto.CursorPageResp[*dto.ContactResp], error)
}

type RoomServiceImpl struct {
	roomRepo    repository.RoomRepo
	contactRepo repository.ContactRepo
	userRepo    repository.UserRepo
	msgRepo     repository.MessageRepo
	handlers    *MsgHandlerRegistry
	chatService ChatService
	bus         event.Bus
	lockOpts    LockOptions
}

func NewRoomService(
	roomRepo repository.RoomRepo,
	contactRepo repository.ContactRepo,
	userRepo repository.UserRepo,
	msgRepo repository.MessageRepo,
	handlers *MsgHandlerRegistry,
	chatService ChatService,
	bus event.Bus,
	lockOpts LockOptions,
) RoomService {
	return &RoomServiceImpl{
		roomRepo:    roomRepo,
		contactRepo: contactRepo,
		userRepo:    userRepo,
		msgRepo:     msgRepo,
		handlers:    handlers,
		chatService: chatService,
		bus:         bus,
		lockOpts:    lockOpts,
	}
}

// CreateGroup 每个用户只能当一个群的群主
func (s *RoomServiceImpl) CreateGroup(ctx context.Context, uid uint64, req *dto.GroupCreateReq) (*dto.GroupCreateResp, error) {
	lock, err := acquireLock(ctx, consts.GroupLock+"leader:"+strconv.FormatUint(uid, 10), s.lockOpts)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	leader, err := s.userRepo.GetUserById(ctx, uid)
	if err != nil {
		return nil, err
	}
	if leader == nil {
		return nil, ErrUserNotFound
	}
	exist, err := s.roomRepo.GetLeaderMember(ctx, uid)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrGroupExist
	}
	invitees, err := s.loadInvitees(ctx, uid, req.UIDList)
	if err != nil {
		return nil, err
	}
	if len(invitees) == 0 {
		return nil, ErrParamInvalid
	}

	group := &model.RoomGroup{
		Name:   leader.Name + "的群组",
		Avatar: leader.Avatar,
	}
	memberIDs := make([]uint64, 0, len(invitees))
	for _, user := range invitees {
		memberIDs = append(memberIDs, user.ID)
	}
	room, err := s.roomRepo.CreateGroupRoom(ctx, group, uid, memberIDs)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "群聊已创建", "roomId", room.ID, "leader", uid, "members", len(memberIDs))

	s.publishMemberChange(ctx, room.ID, group.ID, append([]uint64{uid}, memberIDs...), dto.MemberChangeAdd)
	s.sendInviteNotice(ctx, room.ID, leader, invitees)
	return &dto.GroupCreateResp{RoomID: room.ID}, nil
}

func (s *RoomServiceImpl) Invite(ctx context.Context, uid uint64, req *dto.GroupInviteReq) error {
	group, member, err := s.loadGroupMember(ctx, req.RoomID, uid)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotRoomMember
	}
	inviter, err := s.userRepo.GetUserById(ctx, uid)
	if err != nil {
		return err
	}
	if inviter == nil {
		return ErrUserNotFound
	}
	invitees, err := s.loadInvitees(ctx, uid, req.UIDList)
	if err != nil {
		return err
	}
	ids := make([]uint64, 0, len(invitees))
	for _, user := range invitees {
		ids = append(ids, user.ID)
	}
	added, err := s.roomRepo.AddMembers(ctx, group.ID, ids)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return nil
	}

	addedSet := make(map[uint64]struct{}, len(added))
	for _, id := range added {
		addedSet[id] = struct{}{}
	}
	joined := make([]*model.User, 0, len(added))
	for _, user := range invitees {
		if _, ok := addedSet[user.ID]; ok {
			joined = append(joined, user)
		}
	}
	s.publishMemberChange(ctx, req.RoomID, group.ID, added, dto.MemberChangeAdd)
	s.sendInviteNotice(ctx, req.RoomID, inviter, joined)
	return nil
}

// RemoveMember 群主可以移除任何人，管理员只能移除普通成员
func (s *RoomServiceImpl) RemoveMember(ctx context.Context, uid uint64, req *dto.GroupRemoveReq) error {
	if req.UID == uid {
		return ErrGroupRemoveSelf
	}
	group, operator, err := s.loadGroupMember(ctx, req.RoomID, uid)
	if err != nil {
		return err
	}
	if operator == nil || !operator.IsManager() {
		return ErrGroupNoPower
	}
	target, err := s.roomRepo.GetMember(ctx, group.ID, req.UID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotRoomMember
	}
	if target.Role == model.GroupRoleLeader {
		return ErrGroupNoPower
	}
	if operator.Role != model.GroupRoleLeader && target.Role != model.GroupRoleMember {
		return ErrGroupNoPower
	}
	return s.leave(ctx, req.RoomID, group.ID, req.UID)
}

func (s *RoomServiceImpl) Exit(ctx context.Context, uid uint64, req *dto.GroupExitReq) error {
	group, member, err := s.loadGroupMember(ctx, req.RoomID, uid)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotRoomMember
	}
	if member.Role == model.GroupRoleLeader {
		return ErrGroupLeaderExit
	}
	return s.leave(ctx, req.RoomID, group.ID, uid)
}

func (s *RoomServiceImpl) leave(ctx context.Context, roomID, groupID, uid uint64) error {
	removed, err := s.roomRepo.RemoveMember(ctx, groupID, uid)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotRoomMember
	}
	if err = s.contactRepo.DeleteByRoom(ctx, roomID, []uint64{uid}); err != nil {
		return err
	}
	s.publishMemberChange(ctx, roomID, groupID, []uint64{uid}, dto.MemberChangeRemove)
	return nil
}

// GetMembers 群成员列表，群主与管理员在前，其余按在线状态排序
func (s *RoomServiceImpl) GetMembers(ctx context.Context, uid uint64, req *dto.MemberPageReq) ([]*dto.GroupMemberResp, error) {
	room, err := s.roomRepo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil || room.Type != model.RoomTypeGroup || room.IsBroadcast() {
		return nil, ErrGroupNotFound
	}
	if err = checkRoomAccess(ctx, s.roomRepo, room, uid, true); err != nil {
		return nil, err
	}
	group, err := s.roomRepo.GetRoomGroup(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	members, err := s.roomRepo.GetMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	uids := make([]uint64, 0, len(members))
	for _, member := range members {
		uids = append(uids, member.UID)
	}
	users, err := s.userRepo.GetUserByIds(ctx, uids)
	if err != nil {
		return nil, err
	}
	userMap := make(map[uint64]*model.User, len(users))
	for _, user := range users {
		userMap[user.ID] = user
	}

	list := make([]*dto.GroupMemberResp, 0, len(members))
	for _, member := range members {
		user, ok := userMap[member.UID]
		if !ok {
			continue
		}
		list = append(list, &dto.GroupMemberResp{
			UID:          member.UID,
			Role:         member.Role,
			ActiveStatus: user.Active,
			LastOptTime:  user.LastOptTime,
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Role != list[j].Role {
			return list[i].Role < list[j].Role
		}
		if list[i].ActiveStatus != list[j].ActiveStatus {
			return list[i].ActiveStatus < list[j].ActiveStatus
		}
		return list[i].LastOptTime.After(list[j].LastOptTime)
	})
	return list, nil
}

// GetContactPage 会话列表按活跃时间倒序，第一页把全员群放在最前面
func (s *RoomServiceImpl) GetContactPage(ctx context.Context, uid uint64, req *dto.CursorPageReq) (*dto.CursorPageResp[*dto.ContactResp], error) {
	before, err := decodeTimeCursor(req.Cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	size := util.NormalizePageSize(req.PageSize, defaultContactPageSize)
	contacts, err := s.contactRepo.PageByUID(ctx, uid, before, size)
	if err != nil {
		return nil, err
	}

	roomIDs := make([]uint64, 0, len(contacts))
	if before.IsZero() {
		hot, err := s.roomRepo.GetHotRooms(ctx)
		if err != nil {
			return nil, err
		}
		for _, room := range hot {
			roomIDs = append(roomIDs, room.ID)
		}
	}
	contactMap := make(map[uint64]*model.Contact, len(contacts))
	for _, contact := range contacts {
		if _, ok := contactMap[contact.RoomID]; ok {
			continue
		}
		contactMap[contact.RoomID] = contact
		roomIDs = append(roomIDs, contact.RoomID)
	}
	roomIDs = util.UniqueUint64(roomIDs)

	list, err := s.buildContacts(ctx, uid, roomIDs, contactMap)
	if err != nil {
		return nil, err
	}
	resp := &dto.CursorPageResp[*dto.ContactResp]{
		IsLast: len(contacts) < size,
		List:   list,
	}
	if len(contacts) > 0 && !resp.IsLast {
		resp.Cursor = encodeTimeCursor(contacts[len(contacts)-1].ActiveTime)
	}
	return resp, nil
}

func (s *RoomServiceImpl) buildContacts(ctx context.Context, uid uint64, roomIDs []uint64, contacts map[uint64]*model.Contact) ([]*dto.ContactResp, error) {
	rooms, err := s.roomRepo.GetRoomsByIds(ctx, roomIDs)
	if err != nil {
		return nil, err
	}
	roomMap := make(map[uint64]*model.Room, len(rooms))
	msgIDs := make([]uint64, 0, len(rooms))
	for _, room := range rooms {
		roomMap[room.ID] = room
		if room.LastMsgID > 0 {
			msgIDs = append(msgIDs, room.LastMsgID)
		}
	}

	groups, err := s.roomRepo.GetRoomGroupsByRoomIds(ctx, roomIDs)
	if err != nil {
		return nil, err
	}
	groupMap := make(map[uint64]*model.RoomGroup, len(groups))
	for _, group := range groups {
		groupMap[group.RoomID] = group
	}
	friends, err := s.roomRepo.GetRoomFriendsByRoomIds(ctx, roomIDs)
	if err != nil {
		return nil, err
	}
	friendMap := make(map[uint64]*model.RoomFriend, len(friends))
	peerIDs := make([]uint64, 0, len(friends))
	for _, friend := range friends {
		friendMap[friend.RoomID] = friend
		peerIDs = append(peerIDs, friend.Peer(uid))
	}
	peers, err := s.userRepo.GetUserByIds(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	peerMap := make(map[uint64]*model.User, len(peers))
	for _, peer := range peers {
		peerMap[peer.ID] = peer
	}
	msgs, err := s.msgRepo.GetMessagesByIds(ctx, msgIDs)
	if err != nil {
		return nil, err
	}
	msgMap := make(map[uint64]*model.Message, len(msgs))
	for _, msg := range msgs {
		msgMap[msg.ID] = msg
	}

	list := make([]*dto.ContactResp, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		room, ok := roomMap[roomID]
		if !ok {
			continue
		}
		resp := &dto.ContactResp{
			RoomID:     room.ID,
			Type:       room.Type,
			HotFlag:    room.HotFlag,
			ActiveTime: room.ActiveTime,
		}
		if group, ok := groupMap[roomID]; ok {
			resp.Name, resp.Avatar = group.Name, group.Avatar
		}
		if friend, ok := friendMap[roomID]; ok {
			if peer, ok := peerMap[friend.Peer(uid)]; ok {
				resp.Name, resp.Avatar = peer.Name, peer.Avatar
			}
		}
		if msg, ok := msgMap[room.LastMsgID]; ok {
			resp.Text = s.contactText(msg)
		}
		if contact, ok := contacts[roomID]; ok {
			resp.ActiveTime = contact.ActiveTime
			unread, err := s.msgRepo.CountUnread(ctx, roomID, contact.ReadTime, uid)
			if err != nil {
				return nil, err
			}
			resp.UnreadCount = unread
		}
		list = append(list, resp)
	}
	return list, nil
}

func (s *RoomServiceImpl) contactText(msg *model.Message) string {
	handler, ok := s.handlers.Get(msg.Type)
	if !ok {
		return ""
	}
	return handler.ShowContactMsg(msg)
}

func (s *RoomServiceImpl) loadGroupMember(ctx context.Context, roomID, uid uint64) (*model.RoomGroup, *model.GroupMember, error) {
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if room == nil || room.Type != model.RoomTypeGroup || room.IsBroadcast() {
		return nil, nil, ErrGroupNotFound
	}
	group, err := s.roomRepo.GetRoomGroup(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if group == nil {
		return nil, nil, ErrGroupNotFound
	}
	member, err := s.roomRepo.GetMember(ctx, group.ID, uid)
	if err != nil {
		return nil, nil, err
	}
	return group, member, nil
}

// loadInvitees 去重并剔除自己与不存在的用户
func (s *RoomServiceImpl) loadInvitees(ctx context.Context, uid uint64, uids []uint64) ([]*model.User, error) {
	ids := make([]uint64, 0, len(uids))
	for _, id := range util.UniqueUint64(uids) {
		if id != uid {
			ids = append(ids, id)
		}
	}
	return s.userRepo.GetUserByIds(ctx, ids)
}

func (s *RoomServiceImpl) publishMemberChange(ctx context.Context, roomID, groupID uint64, uids []uint64, changeType int) {
	payload := &MemberChangeEvent{RoomID: roomID, GroupID: groupID, UIDs: uids, ChangeType: changeType}
	if err := s.bus.Publish(ctx, event.TopicMemberChange, roomKey(roomID), payload); err != nil {
		log.ErrorContext(ctx, "发布成员变动事件失败", "roomId", roomID, "err", err)
	}
}

func (s *RoomServiceImpl) sendInviteNotice(ctx context.Context, roomID uint64, inviter *model.User, invitees []*model.User) {
	if len(invitees) == 0 {
		return
	}
	names := make([]string, 0, len(invitees))
	for _, user := range invitees {
		names = append(names, "\""+user.Name+"\"")
	}
	content := fmt.Sprintf("\"%s\"邀请%s加入群聊", inviter.Name, strings.Join(names, "、"))
	if _, err := s.chatService.SendSystemMsg(ctx, roomID, inviter.ID, content); err != nil {
		log.WarnContext(ctx, "发送入群提示失败", "roomId", roomID, "err", err)
	}
}

func encodeTimeCursor(t time.Time) string {
	return util.EncodeCursor([]interface{}{t.UnixMilli()})
}

func decodeTimeCursor(cursor string) (time.Time, error) {
	values, err := util.DecodeCursor(cursor)
	if err != nil {
		return time.Time{}, util.ErrInvalidCursor
	}
	if len(values) == 0 {
		return time.Time{}, nil
	}
	ms, ok := values[0].(float64)
	if !ok || ms <= 0 {
		return time.Time{}, util.ErrInvalidCursor
	}
	return time.UnixMilli(int64(ms)), nil
}
