package ws

import (
	"Mallchat/internal/pkg/security"
	"net"
	"net/http"
	"strings"
)

// ClientIP 优先取代理头中的第一个地址，否则取对端地址
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ExtractToken 建连时可通过 query 或 Authorization 头携带 token
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return security.ExtractBearer(r.Header.Get("Authorization"))
}
