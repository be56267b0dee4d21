package middleware

import (
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/pkg/security"
	"context"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey = "user_id"
	RolesKey  = "roles"
)

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := security.ExtractBearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *security.UserClaims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(RolesKey, claims.Roles)

	newCtx := context.WithValue(c.Request.Context(), UserIDKey, claims.UserID)
	c.Request = c.Request.WithContext(newCtx)
}
