package middleware

import (
	"Mallchat/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(logger.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		c.Header(traceHeader, traceID)
		c.Next()
	}
}
