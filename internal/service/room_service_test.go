package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/ws"
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoom_GroupLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for uid, name := range map[uint64]string{1: "alice", 2: "bob", 3: "carol", 4: "dave"} {
		env.createUser(t, uid, name)
	}
	require.NoError(t, env.registry.Bind(ctx, 4, "handle-dave"))

	_, err := env.room.CreateGroup(ctx, 1, &dto.GroupCreateReq{UIDList: []uint64{1}})
	assert.ErrorIs(t, err, ErrParamInvalid)

	created, err := env.room.CreateGroup(ctx, 1, &dto.GroupCreateReq{UIDList: []uint64{2, 2, 3, 404}})
	require.NoError(t, err)
	_, err = env.room.CreateGroup(ctx, 1, &dto.GroupCreateReq{UIDList: []uint64{2}})
	assert.ErrorIs(t, err, ErrGroupExist)

	members, err := env.room.GetMembers(ctx, 2, &dto.MemberPageReq{RoomID: created.RoomID})
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, uint64(1), members[0].UID)
	assert.Equal(t, model.GroupRoleLeader, members[0].Role)

	msgs, err := env.msgRepo.PageByRoom(ctx, created.RoomID, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.MsgTypeSystem, msgs[0].Type)
	assert.Equal(t, "\"alice\"邀请\"bob\"、\"carol\"加入群聊", msgs[0].Content)

	_, err = env.room.GetMembers(ctx, 4, &dto.MemberPageReq{RoomID: created.RoomID})
	assert.ErrorIs(t, err, ErrNotRoomMember)

	require.NoError(t, env.room.Invite(ctx, 2, &dto.GroupInviteReq{RoomID: created.RoomID, UIDList: []uint64{3, 4}}))
	frames := env.fabric.handleFrames(t, "handle-dave", ws.RespMemberChange)
	require.Len(t, frames, 1)
	var change dto.MemberChangePush
	require.NoError(t, json.Unmarshal(frames[0].Data, &change))
	assert.Equal(t, uint64(4), change.UID)
	assert.Equal(t, dto.MemberChangeAdd, change.ChangeType)

	assert.ErrorIs(t, env.room.RemoveMember(ctx, 2, &dto.GroupRemoveReq{RoomID: created.RoomID, UID: 3}), ErrGroupNoPower)
	assert.ErrorIs(t, env.room.RemoveMember(ctx, 1, &dto.GroupRemoveReq{RoomID: created.RoomID, UID: 1}), ErrGroupRemoveSelf)
	require.NoError(t, env.room.RemoveMember(ctx, 1, &dto.GroupRemoveReq{RoomID: created.RoomID, UID: 4}))
	assert.ErrorIs(t, env.room.RemoveMember(ctx, 1, &dto.GroupRemoveReq{RoomID: created.RoomID, UID: 4}), ErrNotRoomMember)

	frames = env.fabric.handleFrames(t, "handle-dave", ws.RespMemberChange)
	require.Len(t, frames, 2)
	require.NoError(t, json.Unmarshal(frames[1].Data, &change))
	assert.Equal(t, dto.MemberChangeRemove, change.ChangeType)

	assert.ErrorIs(t, env.room.Exit(ctx, 1, &dto.GroupExitReq{RoomID: created.RoomID}), ErrGroupLeaderExit)
	require.NoError(t, env.room.Exit(ctx, 3, &dto.GroupExitReq{RoomID: created.RoomID}))
	contact, err := env.contactRepo.GetContact(ctx, 3, created.RoomID)
	require.NoError(t, err)
	assert.Nil(t, contact)

	members, err = env.room.GetMembers(ctx, 1, &dto.MemberPageReq{RoomID: created.RoomID})
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestRoom_ContactPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	env.createUser(t, 2, "bob")
	broadcast := env.createBroadcastRoom(t)
	friendRoom := env.createFriendRoom(t, 1, 2)

	env.sendText(t, 1, broadcast.ID, &dto.TextMsgReq{Content: "hello all"})
	env.sendText(t, 2, friendRoom, &dto.TextMsgReq{Content: "one"})
	env.sendText(t, 2, friendRoom, &dto.TextMsgReq{Content: "two"})

	page, err := env.room.GetContactPage(ctx, 1, &dto.CursorPageReq{})
	require.NoError(t, err)
	require.Len(t, page.List, 2)
	assert.True(t, page.IsLast)

	assert.Equal(t, broadcast.ID, page.List[0].RoomID)
	assert.Equal(t, "全员群", page.List[0].Name)
	assert.Equal(t, "hello all", page.List[0].Text)

	assert.Equal(t, friendRoom, page.List[1].RoomID)
	assert.Equal(t, "bob", page.List[1].Name)
	assert.Equal(t, "two", page.List[1].Text)
	assert.EqualValues(t, 2, page.List[1].UnreadCount)

	_, err = env.chat.GetMsgPage(ctx, 1, &dto.MsgPageReq{RoomID: friendRoom})
	require.NoError(t, err)
	page, err = env.room.GetContactPage(ctx, 1, &dto.CursorPageReq{})
	require.NoError(t, err)
	require.Len(t, page.List, 2)
	assert.Zero(t, page.List[1].UnreadCount)

	_, err = env.room.GetContactPage(ctx, 1, &dto.CursorPageReq{Cursor: "???"})
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestTimeCursor(t *testing.T) {
	now := timeNowMilli()
	got, err := decodeTimeCursor(encodeTimeCursor(now))
	require.NoError(t, err)
	assert.True(t, now.Equal(got))

	zero, err := decodeTimeCursor("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func timeNowMilli() time.Time {
	return time.UnixMilli(time.Now().UnixMilli())
}
