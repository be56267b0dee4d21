package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/ws"
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) sendText(t *testing.T, uid, roomID uint64, req *dto.TextMsgReq) *dto.ChatMessageResp {
	t.Helper()
	view, err := e.chat.SendMsg(context.Background(), uid, &dto.ChatMessageReq{
		RoomID:  roomID,
		MsgType: model.MsgTypeText,
		Body:    textBody(t, req),
	})
	require.NoError(t, err)
	return view
}

func TestSendMsg_FriendRoomScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	roomID := env.createFriendRoom(t, 1, 2)
	require.NoError(t, env.registry.Bind(ctx, 2, "handle-bob"))

	view := env.sendText(t, 1, roomID, &dto.TextMsgReq{Content: "hi", AtUIDList: []uint64{2}})

	msg, err := env.msgRepo.GetMessage(ctx, view.Message.ID)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, model.MsgTypeText, msg.Type)
	assert.Equal(t, []uint64{2}, msg.Extra.AtUIDList)

	for _, uid := range []uint64{1, 2} {
		contact, err := env.contactRepo.GetContact(ctx, uid, roomID)
		require.NoError(t, err)
		require.NotNil(t, contact, "uid %d", uid)
		assert.Equal(t, msg.ID, contact.LastMsgID)
	}

	room, err := env.roomRepo.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, room.LastMsgID)

	frames := env.fabric.handleFrames(t, "handle-bob", ws.RespMessage)
	require.Len(t, frames, 1)
	var pushed dto.ChatMessageResp
	require.NoError(t, json.Unmarshal(frames[0].Data, &pushed))
	assert.Equal(t, msg.ID, pushed.Message.ID)
	assert.Equal(t, uint64(1), pushed.FromUser.UID)
	assert.Empty(t, env.fabric.groupFrames(t, ws.RespMessage))
}

func TestSendMsg_StaleHandleIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	roomID := env.createFriendRoom(t, 1, 2)
	require.NoError(t, env.registry.Bind(ctx, 2, "dead-handle"))
	env.fabric.gone["dead-handle"] = true

	view := env.sendText(t, 1, roomID, &dto.TextMsgReq{Content: "hi"})
	assert.NotZero(t, view.Message.ID)
	assert.Empty(t, env.fabric.handleFrames(t, "dead-handle", ws.RespMessage))
}

func TestSendMsg_RoomAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	env.createUser(t, 3, "carol")
	friendRoom := env.createFriendRoom(t, 1, 2)
	groupRoom, _ := env.createGroupRoom(t, 1, 2)

	body := textBody(t, &dto.TextMsgReq{Content: "hi"})
	_, err := env.chat.SendMsg(ctx, 3, &dto.ChatMessageReq{RoomID: friendRoom, MsgType: model.MsgTypeText, Body: body})
	assert.ErrorIs(t, err, ErrNotRoomMember)

	_, err = env.chat.SendMsg(ctx, 3, &dto.ChatMessageReq{RoomID: groupRoom.ID, MsgType: model.MsgTypeText, Body: body})
	assert.ErrorIs(t, err, ErrNotRoomMember)

	require.NoError(t, env.roomRepo.UpdateFriendRoomStatus(ctx, model.FriendRoomKey(1, 2), model.RoomFriendDisabled))
	_, err = env.chat.SendMsg(ctx, 1, &dto.ChatMessageReq{RoomID: friendRoom, MsgType: model.MsgTypeText, Body: body})
	assert.ErrorIs(t, err, ErrFriendRoomDisabled)

	_, err = env.chat.SendMsg(ctx, 1, &dto.ChatMessageReq{RoomID: 999, MsgType: model.MsgTypeText, Body: body})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = env.chat.SendMsg(ctx, 1, &dto.ChatMessageReq{RoomID: groupRoom.ID, MsgType: 99, Body: body})
	assert.ErrorIs(t, err, ErrMsgTypeInvalid)

	_, err = env.chat.SendMsg(ctx, 1, &dto.ChatMessageReq{RoomID: groupRoom.ID, MsgType: model.MsgTypeRecall, Body: body})
	assert.ErrorIs(t, err, ErrMsgTypeInvalid)

	var count int64
	require.NoError(t, env.db.Model(&model.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSendMsg_ReplyMustBeInSameRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	friendRoom := env.createFriendRoom(t, 1, 2)
	groupRoom, _ := env.createGroupRoom(t, 1, 2)

	other := env.sendText(t, 1, groupRoom.ID, &dto.TextMsgReq{Content: "group"})
	target := env.sendText(t, 2, friendRoom, &dto.TextMsgReq{Content: "friend"})

	_, err := env.chat.SendMsg(ctx, 1, &dto.ChatMessageReq{
		RoomID:  friendRoom,
		MsgType: model.MsgTypeText,
		Body:    textBody(t, &dto.TextMsgReq{Content: "re", ReplyMsgID: &other.Message.ID}),
	})
	assert.ErrorIs(t, err, ErrReplyCrossRoom)

	view := env.sendText(t, 1, friendRoom, &dto.TextMsgReq{Content: "re", ReplyMsgID: &target.Message.ID})
	body, ok := view.Message.Body.(*dto.TextMsgResp)
	require.True(t, ok)
	require.NotNil(t, body.Reply)
	assert.Equal(t, target.Message.ID, body.Reply.ID)
	assert.Equal(t, "bob", body.Reply.Username)
	assert.Equal(t, "friend", body.Reply.Body)

	missing := uint64(12345)
	_, err = env.chat.SendMsg(ctx, 1, &dto.ChatMessageReq{
		RoomID:  friendRoom,
		MsgType: model.MsgTypeText,
		Body:    textBody(t, &dto.TextMsgReq{Content: "re", ReplyMsgID: &missing}),
	})
	assert.ErrorIs(t, err, ErrReplyMsgInvalid)
}

func TestSendMsg_GapCountDisablesJump(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	roomID := env.createFriendRoom(t, 1, 2)

	msgs := make([]*model.Message, 0, 104)
	for i := 0; i < 104; i++ {
		msg := &model.Message{RoomID: roomID, FromUID: 2, Content: "m", Type: model.MsgTypeText}
		require.NoError(t, env.msgRepo.CreateMessage(ctx, msg))
		msgs = append(msgs, msg)
	}

	view := env.sendText(t, 1, roomID, &dto.TextMsgReq{Content: "far", ReplyMsgID: &msgs[0].ID})
	body := view.Message.Body.(*dto.TextMsgResp)
	require.NotNil(t, body.Reply)
	assert.Equal(t, 103, body.Reply.GapCount)
	assert.Equal(t, 0, body.Reply.CanCallback)

	near := env.sendText(t, 1, roomID, &dto.TextMsgReq{Content: "near", ReplyMsgID: &msgs[103].ID})
	nearBody := near.Message.Body.(*dto.TextMsgResp)
	require.NotNil(t, nearBody.Reply)
	assert.Equal(t, 1, nearBody.Reply.GapCount)
	assert.Equal(t, 1, nearBody.Reply.CanCallback)

	reloaded, err := env.chat.GetMsg(ctx, 1, view.Message.ID)
	require.NoError(t, err)
	reloadedBody := reloaded.Message.Body.(*dto.TextMsgResp)
	require.NotNil(t, reloadedBody.Reply)
	assert.Equal(t, msgs[0].ID, reloadedBody.Reply.ID)
	assert.Equal(t, 103, reloadedBody.Reply.GapCount)
}

func TestSendMsg_SensitiveWordsMasked(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, "alice")
	room := env.createBroadcastRoom(t)

	view := env.sendText(t, 1, room.ID, &dto.TextMsgReq{Content: "hello foo bar world"})
	assert.Equal(t, "hello *** *** world", view.Message.Body.(*dto.TextMsgResp).Content)
}

func TestSendMsg_AtUserMustExist(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, "alice")
	room := env.createBroadcastRoom(t)

	_, err := env.chat.SendMsg(context.Background(), 1, &dto.ChatMessageReq{
		RoomID:  room.ID,
		MsgType: model.MsgTypeText,
		Body:    textBody(t, &dto.TextMsgReq{Content: "hi", AtUIDList: []uint64{404}}),
	})
	assert.ErrorIs(t, err, ErrAtUserInvalid)
}

func TestSendMsg_BroadcastVsBoundedAddressing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	env.createUser(t, 3, "carol")
	broadcast := env.createBroadcastRoom(t)
	group, _ := env.createGroupRoom(t, 1, 2, 3)

	bView := env.sendText(t, 1, broadcast.ID, &dto.TextMsgReq{Content: "all"})
	var count int64
	require.NoError(t, env.db.Model(&model.Contact{}).Where("room_id = ?", broadcast.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.Len(t, env.fabric.groupFrames(t, ws.RespMessage), 1)

	room, err := env.roomRepo.GetRoom(ctx, broadcast.ID)
	require.NoError(t, err)
	assert.Equal(t, bView.Message.ID, room.LastMsgID)

	gView := env.sendText(t, 2, group.ID, &dto.TextMsgReq{Content: "team"})
	contacts, err := env.contactRepo.GetContactsByRoom(ctx, group.ID, []uint64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, contacts, 3)
	for _, contact := range contacts {
		assert.Equal(t, gView.Message.ID, contact.LastMsgID)
	}
	require.NoError(t, env.db.Model(&model.Contact{}).Where("room_id = ?", group.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count)
	assert.Len(t, env.fabric.groupFrames(t, ws.RespMessage), 1)
}

func TestSendMsg_MediaBodyValidated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	room := env.createBroadcastRoom(t)

	_, err := env.chat.SendMsg(ctx, 1, &dto.ChatMessageReq{
		RoomID:  room.ID,
		MsgType: model.MsgTypeImg,
		Body:    textBody(t, map[string]any{"size": 10}),
	})
	assert.ErrorIs(t, err, ErrMsgContentInvalid)

	view, err := env.chat.SendMsg(ctx, 1, &dto.ChatMessageReq{
		RoomID:  room.ID,
		MsgType: model.MsgTypeImg,
		Body:    textBody(t, map[string]any{"url": "http://oss/a.png", "size": 10, "width": 1, "height": 1}),
	})
	require.NoError(t, err)

	msg, err := env.msgRepo.GetMessage(ctx, view.Message.ID)
	require.NoError(t, err)
	require.NotNil(t, msg.Extra.ImgMsg)
	assert.Equal(t, "http://oss/a.png", msg.Extra.ImgMsg.URL)
}

func TestRecallMsg(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	env.createUser(t, 3, "carol")
	group, _ := env.createGroupRoom(t, 1, 2, 3)
	require.NoError(t, env.registry.Bind(ctx, 3, "handle-carol"))

	own := env.sendText(t, 2, group.ID, &dto.TextMsgReq{Content: "oops"})
	other := env.sendText(t, 2, group.ID, &dto.TextMsgReq{Content: "mine"})

	err := env.chat.RecallMsg(ctx, 3, &dto.RecallMsgReq{MsgID: other.Message.ID, RoomID: group.ID})
	assert.ErrorIs(t, err, ErrRecallNoPower)

	env.chat.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	err = env.chat.RecallMsg(ctx, 2, &dto.RecallMsgReq{MsgID: own.Message.ID, RoomID: group.ID})
	assert.ErrorIs(t, err, ErrRecallExpired)

	// 群主不受时间限制
	require.NoError(t, env.chat.RecallMsg(ctx, 1, &dto.RecallMsgReq{MsgID: own.Message.ID, RoomID: group.ID}))

	msg, err := env.msgRepo.GetMessage(ctx, own.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MsgTypeRecall, msg.Type)
	require.NotNil(t, msg.Extra.Recall)
	assert.Equal(t, uint64(1), msg.Extra.Recall.RecallUID)

	err = env.chat.RecallMsg(ctx, 1, &dto.RecallMsgReq{MsgID: own.Message.ID, RoomID: group.ID})
	assert.ErrorIs(t, err, ErrMsgAlreadyRecalled)

	frames := env.fabric.handleFrames(t, "handle-carol", ws.RespRecall)
	require.Len(t, frames, 1)
	var push dto.MsgRecallPush
	require.NoError(t, json.Unmarshal(frames[0].Data, &push))
	assert.Equal(t, own.Message.ID, push.MsgID)
	assert.Equal(t, uint64(1), push.RecallUID)

	page, err := env.chat.GetMsgPage(ctx, 2, &dto.MsgPageReq{RoomID: group.ID})
	require.NoError(t, err)
	require.Len(t, page.List, 1)
	assert.Equal(t, other.Message.ID, page.List[0].Message.ID)
}

func TestRecallMsg_AuthorWithinWindowAndAdminRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 9, "admin")
	env.grantRole(t, 9, consts.RoleChatManager)
	room := env.createBroadcastRoom(t)

	first := env.sendText(t, 1, room.ID, &dto.TextMsgReq{Content: "a"})
	second := env.sendText(t, 1, room.ID, &dto.TextMsgReq{Content: "b"})

	require.NoError(t, env.chat.RecallMsg(ctx, 1, &dto.RecallMsgReq{MsgID: first.Message.ID, RoomID: room.ID}))

	env.chat.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, env.chat.RecallMsg(ctx, 9, &dto.RecallMsgReq{MsgID: second.Message.ID, RoomID: room.ID}))
	assert.Len(t, env.fabric.groupFrames(t, ws.RespRecall), 2)

	view, err := env.chat.GetMsg(ctx, 1, second.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, "管理员\"admin\"撤回了一条成员消息", view.Message.Body)
}

func TestSetMsgMark_ToggleIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	room := env.createBroadcastRoom(t)
	view := env.sendText(t, 1, room.ID, &dto.TextMsgReq{Content: "like me"})
	msgID := view.Message.ID

	like := &dto.MsgMarkReq{MsgID: msgID, MarkType: model.MarkTypeLike, ActType: model.MarkActConfirm}
	require.NoError(t, env.chat.SetMsgMark(ctx, 2, like))
	mark, err := env.markRepo.GetMark(ctx, msgID, 2, model.MarkTypeLike)
	require.NoError(t, err)
	require.NotNil(t, mark)

	require.NoError(t, env.chat.SetMsgMark(ctx, 2, like))
	mark, err = env.markRepo.GetMark(ctx, msgID, 2, model.MarkTypeLike)
	require.NoError(t, err)
	assert.Nil(t, mark)

	frames := env.fabric.groupFrames(t, ws.RespMark)
	require.Len(t, frames, 2)
	var push dto.MsgMarkPush
	require.NoError(t, json.Unmarshal(frames[1].Data, &push))
	require.Len(t, push.MarkList, 1)
	assert.Equal(t, model.MarkActCancel, push.MarkList[0].ActType)
	assert.Zero(t, push.MarkList[0].MarkCount)

	var badges int64
	require.NoError(t, env.db.Model(&model.UserBackpack{}).Where("item_id = ?", consts.ItemLikeBadge).Count(&badges).Error)
	assert.Zero(t, badges)
}

func TestSetMsgMark_LikeAndDislikeAreExclusive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	room := env.createBroadcastRoom(t)
	view := env.sendText(t, 1, room.ID, &dto.TextMsgReq{Content: "hmm"})
	msgID := view.Message.ID

	require.NoError(t, env.chat.SetMsgMark(ctx, 2, &dto.MsgMarkReq{MsgID: msgID, MarkType: model.MarkTypeLike, ActType: model.MarkActConfirm}))
	require.NoError(t, env.chat.SetMsgMark(ctx, 2, &dto.MsgMarkReq{MsgID: msgID, MarkType: model.MarkTypeDislike, ActType: model.MarkActConfirm}))

	got, err := env.chat.GetMsg(ctx, 2, msgID)
	require.NoError(t, err)
	assert.Equal(t, dto.MsgMark{DislikeCount: 1, UserDislike: 1}, got.Message.MessageMark)

	err = env.chat.SetMsgMark(ctx, 2, &dto.MsgMarkReq{MsgID: msgID, MarkType: 5, ActType: model.MarkActConfirm})
	assert.ErrorIs(t, err, ErrMarkTypeInvalid)
}

func TestGetMsgPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	env.createUser(t, 3, "carol")
	roomID := env.createFriendRoom(t, 1, 2)

	ids := make([]uint64, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, env.sendText(t, 1, roomID, &dto.TextMsgReq{Content: "m"}).Message.ID)
	}

	first, err := env.chat.GetMsgPage(ctx, 2, &dto.MsgPageReq{RoomID: roomID, CursorPageReq: dto.CursorPageReq{PageSize: 3}})
	require.NoError(t, err)
	require.Len(t, first.List, 3)
	assert.False(t, first.IsLast)
	assert.Equal(t, ids[4], first.List[0].Message.ID)

	second, err := env.chat.GetMsgPage(ctx, 2, &dto.MsgPageReq{RoomID: roomID, CursorPageReq: dto.CursorPageReq{Cursor: first.Cursor, PageSize: 3}})
	require.NoError(t, err)
	require.Len(t, second.List, 2)
	assert.True(t, second.IsLast)
	assert.Empty(t, second.Cursor)
	assert.Equal(t, ids[0], second.List[1].Message.ID)

	contact, err := env.contactRepo.GetContact(ctx, 2, roomID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.False(t, contact.ReadTime.IsZero())

	_, err = env.chat.GetMsgPage(ctx, 3, &dto.MsgPageReq{RoomID: roomID})
	assert.ErrorIs(t, err, ErrNotRoomMember)

	_, err = env.chat.GetMsgPage(ctx, 2, &dto.MsgPageReq{RoomID: roomID, CursorPageReq: dto.CursorPageReq{Cursor: "%%%"}})
	assert.ErrorIs(t, err, ErrParamInvalid)
}
