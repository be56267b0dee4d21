package logger

import (
	"Mallchat/internal/api/config"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// 与 middleware.UserIDKey 保持一致
const ginUserIDKey = "user_id"

func SetupGin(r *gin.Engine) {
	var token, index string
	if config.Cfg != nil {
		token, index = config.Cfg.Logstash.Token, config.Cfg.Logstash.Index
	}

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    LogWriter,
		SkipPaths: []string{"/api/ping"},
		Formatter: func(p gin.LogFormatterParams) string {
			var traceID string
			if id, ok := p.Keys[TraceIDKey].(string); ok {
				traceID = id
			}
			if traceID == "" && p.Request != nil {
				traceID = TraceID(p.Request.Context())
			}
			uid, _ := p.Keys[ginUserIDKey].(uint64)

			return fmt.Sprintf(
				`{"time":"%s","level":"INFO","msg":"GIN_ACCESS","trace_id":"%s","log_token":"%s","target_index":"%s","method":"%s","path":"%s","status":%d,"latency":"%v","client_ip":"%s","uid":%d}`+"\n",
				p.TimeStamp.Format(time.RFC3339),
				traceID,
				token,
				index,
				p.Method,
				p.Path,
				p.StatusCode,
				p.Latency,
				p.ClientIP,
				uid,
			)
		},
	}))

	r.Use(gin.Recovery())
}
