package ipgeo

import (
	"Mallchat/internal/api/config"
	"Mallchat/internal/pkg/logger"
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Detail IP 归属地
type Detail struct {
	IP       string `json:"ip"`
	Country  string `json:"country"`
	Region   string `json:"region"`
	City     string `json:"city"`
	ISP      string `json:"isp"`
	CountyID string `json:"county_id"`
}

// Resolver 解析 IP 归属地
type Resolver interface {
	Resolve(ctx context.Context, ip string) (*Detail, error)
}

type taobaoResp struct {
	Code int     `json:"code"`
	Msg  string  `json:"msg"`
	Data *Detail `json:"data"`
}

type TaobaoResolver struct {
	cfg  config.IPGeoConfig
	http *resty.Client
}

func NewResolver(cfg config.IPGeoConfig) Resolver {
	c := resty.New().
		SetTimeout(3 * time.Second).
		SetTransport(logger.NewHTTPTransport("ipgeo"))
	c.JSONMarshal = json.Marshal
	c.JSONUnmarshal = json.Unmarshal
	return &TaobaoResolver{cfg: cfg, http: c}
}

// Resolve 接口限流严格，调用方负责限速与重试
func (s *TaobaoResolver) Resolve(ctx context.Context, ip string) (*Detail, error) {
	var resp taobaoResp
	r, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ip":        ip,
			"accessKey": s.cfg.AccessKey,
		}).
		SetResult(&resp).
		ForceContentType("application/json").
		Get(s.cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "request ip detail")
	}
	if r.IsError() {
		return nil, errors.Errorf("ip detail http status %d", r.StatusCode())
	}
	if resp.Code != 0 || resp.Data == nil {
		return nil, errors.Errorf("ip detail failed: %d %s", resp.Code, resp.Msg)
	}
	return resp.Data, nil
}
