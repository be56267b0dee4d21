package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/registry"
	"Mallchat/internal/pkg/security"
	"Mallchat/internal/pkg/wechat"
	"Mallchat/internal/pkg/ws"
	"Mallchat/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// LoginOptions 登录握手参数
type LoginOptions struct {
	CodeExpire time.Duration
}

// LoginService 扫码登录握手，同时作为 WS 会话的生命周期回调
type LoginService interface {
	ws.SessionHandler
	HandleWxEvent(ctx context.Context, msg *wechat.EventMessage) error
	HandleAuthRedirect(ctx context.Context, code string) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenReq) (*dto.RefreshTokenResp, error)
}

type LoginServiceImpl struct {
	userRepo      repository.UserRepo
	userRolesRepo repository.UserRolesRepo
	registry      registry.Registry
	fabric        ws.Fabric
	wx            wechat.Client
	itemService   ItemService
	bus           event.Bus
	opts          LoginOptions
	now           func() time.Time
}

func NewLoginService(
	userRepo repository.UserRepo,
	userRolesRepo repository.UserRolesRepo,
	reg registry.Registry,
	fabric ws.Fabric,
	wx wechat.Client,
	itemService ItemService,
	bus event.Bus,
	opts LoginOptions,
) LoginService {
	return &LoginServiceImpl{
		userRepo:      userRepo,
		userRolesRepo: userRolesRepo,
		registry:      reg,
		fabric:        fabric,
		wx:            wx,
		itemService:   itemService,
		bus:           bus,
		opts:          opts,
		now:           time.Now,
	}
}

// OnOpen 连接时已携带 token 则直接静默登录
func (s *LoginServiceImpl) OnOpen(ctx context.Context, sess *ws.Session) {
	if sess.Token() != "" {
		s.OnAuthorize(ctx, sess, sess.Token())
	}
}

// OnLoginRequest 生成登录码并下发公众号二维码
func (s *LoginServiceImpl) OnLoginRequest(ctx context.Context, sess *ws.Session) {
	code := security.NewLoginCode(sess.IP())
	if err := s.registry.PutLoginCode(ctx, code, sess.Handle()); err != nil {
		log.ErrorContext(ctx, "保存登录码失败", "handle", sess.Handle(), "err", err)
		return
	}
	loginURL, err := s.wx.CreateQRCode(ctx, code, int(s.opts.CodeExpire.Seconds()))
	if err != nil {
		log.ErrorContext(ctx, "申请登录二维码失败", "handle", sess.Handle(), "err", err)
		return
	}
	frame := &ws.Frame{Type: ws.RespLoginURL, Data: &dto.LoginURLResp{LoginURL: loginURL}}
	if err = sess.Send(frame); err != nil {
		log.WarnContext(ctx, "下发登录二维码失败", "handle", sess.Handle(), "err", err)
	}
}

// OnAuthorize token 无效时通知前端清除本地 token
func (s *LoginServiceImpl) OnAuthorize(ctx context.Context, sess *ws.Session, token string) {
	claims, err := security.ValidateToken(token)
	if err != nil {
		_ = sess.Send(&ws.Frame{Type: ws.RespInvalidateToken})
		return
	}
	user, err := s.userRepo.GetUserById(ctx, claims.UserID)
	if err != nil {
		log.ErrorContext(ctx, "WS 鉴权查询用户失败", "uid", claims.UserID, "err", err)
		return
	}
	if user == nil {
		_ = sess.Send(&ws.Frame{Type: ws.RespInvalidateToken})
		return
	}
	roles, err := s.userRolesRepo.GetUserRoles(ctx, user.ID)
	if err != nil {
		log.ErrorContext(ctx, "WS 鉴权查询角色失败", "uid", user.ID, "err", err)
		return
	}
	if err = s.pushLoginSuccess(ctx, sess.Handle(), user, roles, token, ""); err != nil {
		log.ErrorContext(ctx, "WS 鉴权推送失败", "uid", user.ID, "err", err)
	}
}

func (s *LoginServiceImpl) OnAuthenticated(ctx context.Context, sess *ws.Session) {
	payload := &UserStatusEvent{UID: sess.UID(), IP: sess.IP(), Time: s.now()}
	if err := s.bus.Publish(ctx, event.TopicUserOnline, userKey(sess.UID()), payload); err != nil {
		log.ErrorContext(ctx, "发布上线事件失败", "uid", sess.UID(), "err", err)
	}
}

// OnSwitchUser 旧账号的绑定要解除，否则它的推送会发到新账号的连接上
func (s *LoginServiceImpl) OnSwitchUser(ctx context.Context, sess *ws.Session, prevUID uint64) {
	log.InfoContext(ctx, "WS 连接切换账号", "handle", sess.Handle(), "prevUid", prevUID, "uid", sess.UID())
	s.release(ctx, prevUID, sess.Handle())
}

// OnClose 只有解绑的正是本连接时才算下线
func (s *LoginServiceImpl) OnClose(ctx context.Context, sess *ws.Session) {
	if uid := sess.UID(); uid != 0 {
		s.release(ctx, uid, sess.Handle())
	}
}

func (s *LoginServiceImpl) release(ctx context.Context, uid uint64, handle string) {
	removed, err := s.registry.UnbindHandle(ctx, uid, handle)
	if err != nil {
		log.ErrorContext(ctx, "解绑连接失败", "uid", uid, "handle", handle, "err", err)
		return
	}
	if !removed {
		return
	}
	payload := &UserStatusEvent{UID: uid, Time: s.now()}
	if err = s.bus.Publish(ctx, event.TopicUserOffline, userKey(uid), payload); err != nil {
		log.ErrorContext(ctx, "发布下线事件失败", "uid", uid, "err", err)
	}
}

// HandleWxEvent 公众号事件：扫码、关注、取消关注
func (s *LoginServiceImpl) HandleWxEvent(ctx context.Context, msg *wechat.EventMessage) error {
	switch msg.Event {
	case wechat.EventSubscribe, wechat.EventScan:
		return s.handleScan(ctx, msg.FromUserName, msg.SceneCode())
	case wechat.EventUnsubscribe:
		return s.revoke(ctx, msg.FromUserName)
	default:
		log.DebugContext(ctx, "忽略公众号事件", "event", msg.Event, "openId", msg.FromUserName)
		return nil
	}
}

func (s *LoginServiceImpl) handleScan(ctx context.Context, openID, code string) error {
	if code == "" {
		return nil
	}
	user, err := s.userRepo.GetUserByOpenID(ctx, openID)
	if err != nil {
		return err
	}
	if user != nil {
		return s.loginByCode(ctx, code, user)
	}

	// 未授权用户：记录 openid 与登录码的关联，等待网页授权回调
	handle, err := s.registry.PeekLoginCode(ctx, code)
	if err != nil {
		return err
	}
	if handle == "" {
		log.InfoContext(ctx, "登录码已过期，忽略扫码事件", "openId", openID)
		return nil
	}
	if err = s.registry.PutOpenIDCode(ctx, openID, code); err != nil {
		return err
	}
	if err = s.wx.SendAuthTemplate(ctx, openID); err != nil {
		log.WarnContext(ctx, "发送授权链接失败", "openId", openID, "err", err)
	}
	env, err := ws.NewPushEnvelope(&ws.Frame{Type: ws.RespLoginScanSuccess})
	if err != nil {
		return err
	}
	return s.push(ctx, handle, env)
}

// revoke 取消关注：删除用户及其物品，解绑连接
func (s *LoginServiceImpl) revoke(ctx context.Context, openID string) error {
	user, err := s.userRepo.GetUserByOpenID(ctx, openID)
	if err != nil || user == nil {
		return err
	}
	if err = s.userRepo.DeleteUser(ctx, user.ID); err != nil {
		return err
	}
	log.InfoContext(ctx, "用户取消关注，账号已注销", "uid", user.ID)
	return s.registry.Unbind(ctx, user.ID)
}

// HandleAuthRedirect 网页授权回调，首次授权时注册账号
func (s *LoginServiceImpl) HandleAuthRedirect(ctx context.Context, code string) error {
	if code == "" {
		return ErrParamInvalid
	}
	oauth, err := s.wx.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}
	info, err := s.wx.UserInfo(ctx, oauth.AccessToken, oauth.OpenID)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetUserByOpenID(ctx, info.OpenID)
	if err != nil {
		return err
	}
	if user == nil {
		if user, err = s.register(ctx, info); err != nil {
			return err
		}
	}

	loginCode, err := s.registry.GetOpenIDCode(ctx, info.OpenID)
	if err != nil {
		return err
	}
	if loginCode == "" {
		log.InfoContext(ctx, "授权回调找不到登录码，忽略", "openId", info.OpenID)
		return nil
	}
	return s.loginByCode(ctx, loginCode, user)
}

func (s *LoginServiceImpl) register(ctx context.Context, info *wechat.UserInfo) (*model.User, error) {
	name := []rune(info.Nickname)
	if len(name) > 14 {
		name = name[:14]
	}
	user := &model.User{
		Name:        string(name),
		Avatar:      info.HeadImgURL,
		Sex:         int8(info.Sex),
		OpenID:      info.OpenID,
		Active:      model.UserActiveOffline,
		LastOptTime: s.now(),
	}
	if user.Avatar == "" {
		user.Avatar = consts.DefaultAvatarURL
	}
	exist, err := s.userRepo.GetUserByName(ctx, user.Name)
	if err != nil {
		return nil, err
	}
	if exist != nil || user.Name == "" {
		user.Name = user.Name + "_" + uuid.NewString()[:5]
	}
	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		if repository.IsDuplicateKeyErr(err) {
			return s.userRepo.GetUserByOpenID(ctx, info.OpenID)
		}
		return nil, err
	}
	log.InfoContext(ctx, "新用户注册", "uid", user.ID, "name", user.Name)

	if err = s.itemService.GrantRegistrationItems(ctx, user.ID); err != nil {
		log.ErrorContext(ctx, "发放注册物品失败", "uid", user.ID, "err", err)
	}
	return user, nil
}

// loginByCode 登录码只能消费一次，过期则静默丢弃
func (s *LoginServiceImpl) loginByCode(ctx context.Context, code string, user *model.User) error {
	handle, err := s.registry.TakeLoginCode(ctx, code)
	if err != nil {
		return err
	}
	if handle == "" {
		log.InfoContext(ctx, "登录码已过期，放弃推送登录结果", "uid", user.ID)
		return nil
	}
	roles, err := s.userRolesRepo.GetUserRoles(ctx, user.ID)
	if err != nil {
		return err
	}
	pair, err := security.GenerateTokenPair(user.ID, roleNames(roles))
	if err != nil {
		return err
	}
	return s.pushLoginSuccess(ctx, handle, user, roles, pair.AccessToken, pair.RefreshToken)
}

// pushLoginSuccess 绑定连接并通过 auth 信封下发登录结果
func (s *LoginServiceImpl) pushLoginSuccess(ctx context.Context, handle string, user *model.User, roles []*model.Role, token, refresh string) error {
	if err := s.registry.Bind(ctx, user.ID, handle); err != nil {
		return err
	}
	resp := &dto.LoginSuccessResp{
		UID:          user.ID,
		Name:         user.Name,
		Avatar:       user.Avatar,
		Token:        token,
		RefreshToken: refresh,
	}
	if hasChatPower(roles) {
		resp.Power = 1
	}
	env, err := ws.NewAuthEnvelope(user.ID, &ws.Frame{Type: ws.RespLoginSuccess, Data: resp})
	if err != nil {
		return err
	}
	return s.push(ctx, handle, env)
}

func (s *LoginServiceImpl) push(ctx context.Context, handle string, env *ws.Envelope) error {
	err := s.fabric.PushToHandle(ctx, handle, env)
	if errors.Is(err, ws.ErrHandleGone) {
		log.InfoContext(ctx, "登录连接已断开，放弃推送", "handle", handle)
		return nil
	}
	return err
}

func (s *LoginServiceImpl) RefreshToken(ctx context.Context, req *dto.RefreshTokenReq) (*dto.RefreshTokenResp, error) {
	if req == nil || req.Refresh == "" {
		return nil, ErrParamInvalid
	}
	claims, err := security.ValidateRefreshToken(req.Refresh)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.userRepo.GetUserById(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrTokenInvalid
	}
	roles, err := s.userRolesRepo.GetUserRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	token, err := security.GenerateToken(user.ID, roleNames(roles))
	if err != nil {
		return nil, err
	}
	return &dto.RefreshTokenResp{Token: token}, nil
}
