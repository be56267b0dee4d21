package logger

import (
	"Mallchat/internal/api/config"
	"io"
	log "log/slog"
	"net"
	"os"
)

var LogWriter io.Writer = os.Stdout

func InitLogger() {
	cfg := config.Cfg.Logstash

	hStdout := log.NewJSONHandler(os.Stdout, &log.HandlerOptions{Level: log.LevelInfo})

	var finalHandler log.Handler = hStdout

	if cfg.Address != "" {
		conn, err := net.Dial("tcp", cfg.Address)
		if err == nil {
			hRemote := log.NewJSONHandler(conn, &log.HandlerOptions{Level: log.LevelInfo}).
				WithAttrs([]log.Attr{
					log.String("target_index", cfg.Index),
					log.String("log_token", cfg.Token),
				})

			filterRemote := &RemoteFilterHandler{next: hRemote}

			finalHandler = &TeeHandler{
				handlers: []log.Handler{hStdout, filterRemote},
			}

			LogWriter = io.MultiWriter(os.Stdout, conn)
		} else {
			log.Warn("Failed to connect to Logstash, logging to stdout only", "err", err)
		}
	}

	logger := log.New(&ContextHandler{finalHandler})
	log.SetDefault(logger)
}
