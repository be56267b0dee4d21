package ipgeo

import (
	"Mallchat/internal/api/config"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "8.8.8.8", r.URL.Query().Get("ip"))
		_, _ = w.Write([]byte(`{"code":0,"data":{"ip":"8.8.8.8","country":"美国","region":"XX","city":"XX","isp":"Google"}}`))
	}))
	defer srv.Close()

	detail, err := NewResolver(config.IPGeoConfig{URL: srv.URL, AccessKey: "k"}).Resolve(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "美国", detail.Country)
	assert.Equal(t, "Google", detail.ISP)
}

func TestResolve_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":4,"msg":"the request over max qps for user"}`))
	}))
	defer srv.Close()

	_, err := NewResolver(config.IPGeoConfig{URL: srv.URL}).Resolve(context.Background(), "1.1.1.1")
	assert.Error(t, err)
}

func TestResolve_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewResolver(config.IPGeoConfig{URL: srv.URL}).Resolve(context.Background(), "1.1.1.1")
	assert.Error(t, err)
}
