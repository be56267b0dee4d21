package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/ws"
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout_LikeBadgeGrantedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for uid, name := range map[uint64]string{1: "author", 2: "b", 3: "c", 4: "d"} {
		env.createUser(t, uid, name)
	}
	room := env.createBroadcastRoom(t)
	view := env.sendText(t, 1, room.ID, &dto.TextMsgReq{Content: "nice"})
	like := &dto.MsgMarkReq{MsgID: view.Message.ID, MarkType: model.MarkTypeLike, ActType: model.MarkActConfirm}

	countBadges := func() int64 {
		var n int64
		require.NoError(t, env.db.Model(&model.UserBackpack{}).
			Where("uid = ? AND item_id = ?", 1, consts.ItemLikeBadge).Count(&n).Error)
		return n
	}

	require.NoError(t, env.chat.SetMsgMark(ctx, 2, like))
	assert.Zero(t, countBadges())

	require.NoError(t, env.chat.SetMsgMark(ctx, 3, like))
	assert.EqualValues(t, 1, countBadges())

	// 取消后重新点赞会重放同一个幂等键
	require.NoError(t, env.chat.SetMsgMark(ctx, 3, like))
	require.NoError(t, env.chat.SetMsgMark(ctx, 3, like))
	require.NoError(t, env.chat.SetMsgMark(ctx, 4, like))
	assert.EqualValues(t, 1, countBadges())

	frames := env.fabric.groupFrames(t, ws.RespMark)
	require.Len(t, frames, 5)
	var last dto.MsgMarkPush
	require.NoError(t, json.Unmarshal(frames[4].Data, &last))
	assert.EqualValues(t, 3, last.MarkList[0].MarkCount)
	assert.Equal(t, uint64(4), last.MarkList[0].UID)
}

func TestFanout_UserOnlineOffline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, "alice")
	bus := event.NewSyncBus(env.dispatcher)
	now := time.Now().Truncate(time.Second)

	require.NoError(t, bus.Publish(ctx, event.TopicUserOnline, userKey(1), &UserStatusEvent{UID: 1, IP: "1.2.3.4", Time: now}))

	user, err := env.userRepo.GetUserById(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.UserActiveOnline, user.Active)
	assert.Equal(t, "1.2.3.4", user.IPInfo.CreateIP)
	assert.Equal(t, "1.2.3.4", user.IPInfo.UpdateIP)
	require.NotNil(t, user.IPInfo.UpdateIPDetail)
	assert.Equal(t, "广东", user.IPInfo.UpdateIPDetail.Region)
	assert.Equal(t, 1, env.resolver.calls)

	frames := env.fabric.groupFrames(t, ws.RespOnlineOfflineNotify)
	require.Len(t, frames, 1)
	var notify dto.OnlineOfflineNotify
	require.NoError(t, json.Unmarshal(frames[0].Data, &notify))
	assert.EqualValues(t, 1, notify.OnlineNum)
	require.Len(t, notify.ChangeList, 1)
	assert.Equal(t, model.UserActiveOnline, notify.ChangeList[0].ActiveStatus)

	// 同一 IP 再次上线不重复解析
	require.NoError(t, bus.Publish(ctx, event.TopicUserOnline, userKey(1), &UserStatusEvent{UID: 1, IP: "1.2.3.4", Time: now}))
	assert.Equal(t, 1, env.resolver.calls)

	require.NoError(t, bus.Publish(ctx, event.TopicUserOffline, userKey(1), &UserStatusEvent{UID: 1, Time: now}))
	user, err = env.userRepo.GetUserById(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.UserActiveOffline, user.Active)
	assert.Equal(t, "1.2.3.4", user.IPInfo.UpdateIP)

	frames = env.fabric.groupFrames(t, ws.RespOnlineOfflineNotify)
	require.Len(t, frames, 3)
	require.NoError(t, json.Unmarshal(frames[2].Data, &notify))
	assert.Zero(t, notify.OnlineNum)
	assert.Equal(t, model.UserActiveOffline, notify.ChangeList[0].ActiveStatus)
}

func TestFanout_MissingRoomIsNotAnError(t *testing.T) {
	env := newTestEnv(t)
	bus := event.NewSyncBus(env.dispatcher)

	err := bus.Publish(context.Background(), event.TopicMessageRecall, roomKey(404), &MsgRecallEvent{MsgID: 1, RoomID: 404, RecallUID: 1})
	assert.NoError(t, err)
	assert.Empty(t, env.fabric.groupFrames(t, ws.RespRecall))
}
