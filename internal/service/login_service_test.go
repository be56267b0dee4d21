package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/security"
	"Mallchat/internal/pkg/wechat"
	"Mallchat/internal/pkg/ws"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWechat struct {
	templates []string
	openID    string
	nickname  string
}

func (f *fakeWechat) CreateQRCode(_ context.Context, sceneStr string, _ int) (string, error) {
	return "https://mp.weixin.qq.com/qr/" + sceneStr, nil
}

func (f *fakeWechat) SendAuthTemplate(_ context.Context, openID string) error {
	f.templates = append(f.templates, openID)
	return nil
}

func (f *fakeWechat) ExchangeCode(_ context.Context, _ string) (*wechat.OAuthToken, error) {
	return &wechat.OAuthToken{AccessToken: "web-token", OpenID: f.openID}, nil
}

func (f *fakeWechat) UserInfo(_ context.Context, _, openID string) (*wechat.UserInfo, error) {
	return &wechat.UserInfo{OpenID: openID, Nickname: f.nickname, Sex: 1, HeadImgURL: "https://img/a.png"}, nil
}

func (f *fakeWechat) AccessToken(context.Context) (string, error) { return "token", nil }
func (f *fakeWechat) AuthorizeURL() string                        { return "https://open.weixin.qq.com/auth" }
func (f *fakeWechat) CheckSignature(_, _, _ string) bool          { return true }

func newTestLogin(t *testing.T) (*testEnv, LoginService, *fakeWechat) {
	t.Helper()
	env := newTestEnv(t)
	wx := &fakeWechat{openID: "wx-open-1", nickname: "小明"}
	svc := NewLoginService(env.userRepo, env.userRolesRepo, env.registry, env.fabric, wx, env.item,
		event.NewSyncBus(env.dispatcher), LoginOptions{CodeExpire: time.Minute})
	return env, svc, wx
}

func loginSuccessOf(t *testing.T, env *testEnv, handle string) (*ws.Envelope, *dto.LoginSuccessResp) {
	t.Helper()
	env.fabric.mu.Lock()
	envs := env.fabric.handles[handle]
	env.fabric.mu.Unlock()
	for _, e := range envs {
		if e.Op != ws.OpAuth {
			continue
		}
		var frame pushedFrame
		require.NoError(t, json.Unmarshal(e.Data, &frame))
		require.Equal(t, ws.RespLoginSuccess, frame.Type)
		resp := &dto.LoginSuccessResp{}
		require.NoError(t, json.Unmarshal(frame.Data, resp))
		return e, resp
	}
	return nil, nil
}

func TestLogin_ScanThenAuthorizeRedirect(t *testing.T) {
	env, svc, wx := newTestLogin(t)
	ctx := context.Background()
	require.NoError(t, env.registry.PutLoginCode(ctx, "code-1", "handle-1"))

	err := svc.HandleWxEvent(ctx, &wechat.EventMessage{
		FromUserName: "wx-open-1",
		Event:        wechat.EventSubscribe,
		EventKey:     wechat.QrScenePrefix + "code-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"wx-open-1"}, wx.templates)
	assert.Len(t, env.fabric.handleFrames(t, "handle-1", ws.RespLoginScanSuccess), 1)

	require.NoError(t, svc.HandleAuthRedirect(ctx, "oauth-code"))

	user, err := env.userRepo.GetUserByOpenID(ctx, "wx-open-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "小明", user.Name)

	authEnv, resp := loginSuccessOf(t, env, "handle-1")
	require.NotNil(t, authEnv)
	assert.Equal(t, user.ID, authEnv.UID)
	assert.Equal(t, user.ID, resp.UID)
	assert.Zero(t, resp.Power)
	claims, err := security.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	_, err = security.ValidateRefreshToken(resp.RefreshToken)
	require.NoError(t, err)

	handle, err := env.registry.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "handle-1", handle)
	code, err := env.registry.PeekLoginCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Empty(t, code)

	for _, itemID := range []uint64{consts.ItemModifyNameCard, consts.ItemRegTop10Badge, consts.ItemRegTop100Badge} {
		owned, err := env.itemRepo.HasItem(ctx, user.ID, itemID)
		require.NoError(t, err)
		assert.True(t, owned, "item %d", itemID)
	}
}

func TestLogin_ExpiredCodeIsDroppedSilently(t *testing.T) {
	env, svc, wx := newTestLogin(t)
	ctx := context.Background()

	err := svc.HandleWxEvent(ctx, &wechat.EventMessage{
		FromUserName: "wx-open-1",
		Event:        wechat.EventScan,
		EventKey:     "gone-code",
	})
	require.NoError(t, err)
	assert.Empty(t, wx.templates)

	env.createUser(t, 5, "old")
	err = svc.HandleWxEvent(ctx, &wechat.EventMessage{FromUserName: "openid-5", Event: wechat.EventScan, EventKey: "gone-code"})
	require.NoError(t, err)
	handle, err := env.registry.Lookup(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, handle)

	env.fabric.mu.Lock()
	defer env.fabric.mu.Unlock()
	assert.Empty(t, env.fabric.handles)
}

func TestLogin_RegisteredUserScanLogsInDirectly(t *testing.T) {
	env, svc, _ := newTestLogin(t)
	ctx := context.Background()
	env.createUser(t, 5, "boss")
	env.grantRole(t, 5, consts.RoleAdmin)
	require.NoError(t, env.registry.PutLoginCode(ctx, "code-5", "handle-5"))

	err := svc.HandleWxEvent(ctx, &wechat.EventMessage{FromUserName: "openid-5", Event: wechat.EventScan, EventKey: "code-5"})
	require.NoError(t, err)

	authEnv, resp := loginSuccessOf(t, env, "handle-5")
	require.NotNil(t, authEnv)
	assert.Equal(t, uint64(5), resp.UID)
	assert.Equal(t, 1, resp.Power)

	claims, err := security.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{consts.RoleAdmin}, claims.Roles)
}

func TestLogin_UnsubscribeRevokesUser(t *testing.T) {
	env, svc, _ := newTestLogin(t)
	ctx := context.Background()
	env.createUser(t, 5, "leaving")
	_, err := env.item.Grant(ctx, 5, consts.ItemModifyNameCard, "1_reg_5")
	require.NoError(t, err)
	require.NoError(t, env.registry.Bind(ctx, 5, "handle-5"))

	require.NoError(t, svc.HandleWxEvent(ctx, &wechat.EventMessage{FromUserName: "openid-5", Event: wechat.EventUnsubscribe}))

	user, err := env.userRepo.GetUserById(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, user)
	var backpacks int64
	require.NoError(t, env.db.Model(&model.UserBackpack{}).Where("uid = ?", 5).Count(&backpacks).Error)
	assert.Zero(t, backpacks)
	handle, err := env.registry.Lookup(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, handle)

	require.NoError(t, svc.HandleWxEvent(ctx, &wechat.EventMessage{FromUserName: "nobody", Event: wechat.EventUnsubscribe}))
}

func TestLogin_RefreshToken(t *testing.T) {
	env, svc, _ := newTestLogin(t)
	ctx := context.Background()
	env.createUser(t, 5, "alice")

	_, err := svc.RefreshToken(ctx, &dto.RefreshTokenReq{})
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = svc.RefreshToken(ctx, &dto.RefreshTokenReq{Refresh: "not-a-jwt"})
	assert.ErrorIs(t, err, ErrTokenInvalid)

	pair, err := security.GenerateTokenPair(5, nil)
	require.NoError(t, err)

	_, err = svc.RefreshToken(ctx, &dto.RefreshTokenReq{Refresh: pair.AccessToken})
	assert.ErrorIs(t, err, ErrTokenInvalid)

	resp, err := svc.RefreshToken(ctx, &dto.RefreshTokenReq{Refresh: pair.RefreshToken})
	require.NoError(t, err)
	claims, err := security.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), claims.UserID)
}

func TestLogin_SwitchUserReleasesPreviousBinding(t *testing.T) {
	env, svc, _ := newTestLogin(t)
	ctx := context.Background()
	env.createUser(t, 1, "甲")
	env.createUser(t, 2, "乙")
	sess := ws.NewSession(nil, httptest.NewRequest(http.MethodGet, "/websocket", nil), svc, ws.Options{})

	tokA, err := security.GenerateToken(1, nil)
	require.NoError(t, err)
	tokB, err := security.GenerateToken(2, nil)
	require.NoError(t, err)
	svc.OnAuthorize(ctx, sess, tokA)
	svc.OnAuthorize(ctx, sess, tokB)

	// 会话收到 B 的 auth 信封后回调，A 的绑定随之解除
	svc.OnSwitchUser(ctx, sess, 1)

	handle, err := env.registry.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, handle)
	handle, err = env.registry.Lookup(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, sess.Handle(), handle)
	require.Len(t, env.fabric.groupFrames(t, ws.RespOnlineOfflineNotify), 1)

	// A 已在别的连接重新登录时不能误删
	require.NoError(t, env.registry.Bind(ctx, 1, "handle-new"))
	svc.OnSwitchUser(ctx, sess, 1)
	handle, err = env.registry.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "handle-new", handle)
	assert.Len(t, env.fabric.groupFrames(t, ws.RespOnlineOfflineNotify), 1)
}
