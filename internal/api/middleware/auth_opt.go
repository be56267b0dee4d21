package middleware

import (
	"Mallchat/internal/pkg/security"

	"github.com/gin-gonic/gin"
)

// AuthOptionalMiddleware 可选鉴权：全员群的消息游客也能看，解析失败或缺失时 UID 为 0
func AuthOptionalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := security.ExtractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Set(UserIDKey, uint64(0))
			c.Next()
			return
		}

		claims, err := security.ValidateToken(token)
		if err != nil {
			c.Set(UserIDKey, uint64(0))
		} else {
			setIdentity(c, claims)
		}

		c.Next()
	}
}
