package handler

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/pkg/wechat"
	"Mallchat/internal/service"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type WxHandler struct {
	loginSvc service.LoginService
	wx       wechat.Client
}

func NewWxHandler(loginSvc service.LoginService, wx wechat.Client) *WxHandler {
	return &WxHandler{loginSvc: loginSvc, wx: wx}
}

// CheckPortal 公众号服务器配置校验，签名通过时原样返回 echostr
func (s *WxHandler) CheckPortal(c *gin.Context) {
	if !s.wx.CheckSignature(c.Query("signature"), c.Query("timestamp"), c.Query("nonce")) {
		log.WarnContext(c.Request.Context(), "微信签名校验失败", "ip", c.ClientIP())
		c.String(http.StatusForbidden, "")
		return
	}
	c.String(http.StatusOK, c.Query("echostr"))
}

// Portal 接收公众号事件推送，微信只关心是否返回 success
func (s *WxHandler) Portal(c *gin.Context) {
	ctx := c.Request.Context()
	if !s.wx.CheckSignature(c.Query("signature"), c.Query("timestamp"), c.Query("nonce")) {
		log.WarnContext(ctx, "微信签名校验失败", "ip", c.ClientIP())
		c.String(http.StatusForbidden, "")
		return
	}
	var msg wechat.EventMessage
	if err := c.ShouldBindXML(&msg); err != nil {
		log.WarnContext(ctx, "微信事件解析失败", "err", err)
		c.String(http.StatusOK, "success")
		return
	}
	if err := s.loginSvc.HandleWxEvent(ctx, &msg); err != nil {
		log.ErrorContext(ctx, "处理微信事件失败", "event", msg.Event, "openId", msg.FromUserName, "err", err)
	}
	c.String(http.StatusOK, "success")
}

// AuthRedirect 网页授权回调
func (s *WxHandler) AuthRedirect(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.loginSvc.HandleAuthRedirect(c.Request.Context(), code); err != nil {
		response.Error(c, err)
		return
	}
	c.String(http.StatusOK, "授权成功，请回到网页继续操作")
}

func (s *WxHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.loginSvc.RefreshToken(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
