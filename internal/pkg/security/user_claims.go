package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	JWTSecret         = "mallchat"
	JWTExpirationTime = time.Hour * 2
	JWTRefreshTime    = time.Hour * 24 * 7
)

// Init 使用配置覆盖默认的密钥与有效期
func Init(secret string, accessTTL, refreshTTL time.Duration) {
	if secret != "" {
		JWTSecret = secret
	}
	if accessTTL > 0 {
		JWTExpirationTime = accessTTL
	}
	if refreshTTL > 0 {
		JWTRefreshTime = refreshTTL
	}
}

// UserClaims 定义了我们 Token 中需要包含的业务信息
type UserClaims struct {
	UserID    uint64   `json:"user_id"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}
