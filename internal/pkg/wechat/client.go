package wechat

import (
	"Mallchat/internal/api/config"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/logger"
	"Mallchat/internal/pkg/redis"
	"context"
	"fmt"
	log "log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Client 公众号开放接口，全部调用都可能失败且不自带重试
type Client interface {
	CreateQRCode(ctx context.Context, sceneStr string, expireSeconds int) (string, error)
	SendAuthTemplate(ctx context.Context, openID string) error
	ExchangeCode(ctx context.Context, code string) (*OAuthToken, error)
	UserInfo(ctx context.Context, accessToken, openID string) (*UserInfo, error)
	AccessToken(ctx context.Context) (string, error)
	AuthorizeURL() string
	CheckSignature(signature, timestamp, nonce string) bool
}

type apiError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (e apiError) err(api string) error {
	if e.ErrCode == 0 {
		return nil
	}
	return errors.Errorf("wechat %s failed: %d %s", api, e.ErrCode, e.ErrMsg)
}

type accessTokenResp struct {
	apiError
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type qrCodeResp struct {
	apiError
	Ticket        string `json:"ticket"`
	ExpireSeconds int    `json:"expire_seconds"`
	URL           string `json:"url"`
}

// OAuthToken 网页授权换取的凭证
type OAuthToken struct {
	apiError
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	OpenID      string `json:"openid"`
	Scope       string `json:"scope"`
}

// UserInfo 网页授权拉取的用户资料
type UserInfo struct {
	apiError
	OpenID     string `json:"openid"`
	Nickname   string `json:"nickname"`
	Sex        int    `json:"sex"`
	HeadImgURL string `json:"headimgurl"`
	UnionID    string `json:"unionid"`
}

type RestyClient struct {
	cfg  config.WeChatConfig
	http *resty.Client
}

func NewClient(cfg config.WeChatConfig) Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(5 * time.Second).
		SetTransport(logger.NewHTTPTransport("wechat"))
	httpClient.JSONMarshal = json.Marshal
	httpClient.JSONUnmarshal = json.Unmarshal
	return &RestyClient{cfg: cfg, http: httpClient}
}

// AccessToken 优先读取缓存，过期前 5 分钟刷新
func (s *RestyClient) AccessToken(ctx context.Context) (string, error) {
	cached, err := redis.GetValue(ctx, consts.WxAccessTokenKey)
	if err != nil {
		log.WarnContext(ctx, "read wechat access token cache failed", "err", err)
	}
	if cached != "" {
		return cached, nil
	}

	var resp accessTokenResp
	_, err = s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type": "client_credential",
			"appid":      s.cfg.AppID,
			"secret":     s.cfg.Secret,
		}).
		SetResult(&resp).
		ForceContentType("application/json").
		Get("/cgi-bin/token")
	if err != nil {
		return "", errors.Wrap(err, "request wechat access token")
	}
	if err = resp.err("token"); err != nil {
		return "", err
	}

	ttl := time.Duration(resp.ExpiresIn)*time.Second - 5*time.Minute
	if ttl > 0 {
		if err = redis.SetWithExpiration(ctx, consts.WxAccessTokenKey, resp.AccessToken, ttl); err != nil {
			log.WarnContext(ctx, "cache wechat access token failed", "err", err)
		}
	}
	return resp.AccessToken, nil
}

// CreateQRCode 以登录码为场景值生成临时二维码，返回二维码内容链接
func (s *RestyClient) CreateQRCode(ctx context.Context, sceneStr string, expireSeconds int) (string, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"expire_seconds": expireSeconds,
		"action_name":    "QR_STR_SCENE",
		"action_info": map[string]any{
			"scene": map[string]string{"scene_str": sceneStr},
		},
	}

	var resp qrCodeResp
	_, err = s.http.R().
		SetContext(ctx).
		SetQueryParam("access_token", token).
		SetBody(body).
		SetResult(&resp).
		ForceContentType("application/json").
		Post("/cgi-bin/qrcode/create")
	if err != nil {
		return "", errors.Wrap(err, "request wechat qrcode")
	}
	if err = resp.err("qrcode"); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// SendAuthTemplate 给扫码但未授权的用户推送授权链接
func (s *RestyClient) SendAuthTemplate(ctx context.Context, openID string) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"touser":      openID,
		"template_id": s.cfg.TemplateID,
		"url":         s.AuthorizeURL(),
		"data": map[string]any{
			"first": map[string]string{"value": "点击链接完成授权登录"},
		},
	}

	var resp apiError
	_, err = s.http.R().
		SetContext(ctx).
		SetQueryParam("access_token", token).
		SetBody(body).
		SetResult(&resp).
		ForceContentType("application/json").
		Post("/cgi-bin/message/template/send")
	if err != nil {
		return errors.Wrap(err, "request wechat template send")
	}
	return resp.err("template")
}

// ExchangeCode 用授权回调的 code 换取网页授权凭证
func (s *RestyClient) ExchangeCode(ctx context.Context, code string) (*OAuthToken, error) {
	var resp OAuthToken
	_, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"appid":      s.cfg.AppID,
			"secret":     s.cfg.Secret,
			"code":       code,
			"grant_type": "authorization_code",
		}).
		SetResult(&resp).
		ForceContentType("application/json").
		Get("/sns/oauth2/access_token")
	if err != nil {
		return nil, errors.Wrap(err, "request wechat oauth token")
	}
	if err = resp.err("oauth2"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *RestyClient) UserInfo(ctx context.Context, accessToken, openID string) (*UserInfo, error) {
	var resp UserInfo
	_, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_token": accessToken,
			"openid":       openID,
			"lang":         "zh_CN",
		}).
		SetResult(&resp).
		ForceContentType("application/json").
		Get("/sns/userinfo")
	if err != nil {
		return nil, errors.Wrap(err, "request wechat userinfo")
	}
	if err = resp.err("userinfo"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *RestyClient) AuthorizeURL() string {
	return fmt.Sprintf(
		"https://open.weixin.qq.com/connect/oauth2/authorize?appid=%s&redirect_uri=%s&response_type=code&scope=snsapi_userinfo&state=STATE#wechat_redirect",
		s.cfg.AppID, url.QueryEscape(s.cfg.RedirectURI),
	)
}

func (s *RestyClient) CheckSignature(signature, timestamp, nonce string) bool {
	return CheckSignature(s.cfg.Token, signature, timestamp, nonce)
}
