package logger

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisArgsLimit = 200

// RedisLoggerHook 只记录错误和慢命令，推送通道的负载不落日志
type RedisLoggerHook struct {
	SlowThreshold time.Duration
}

func NewRedisLogger() *RedisLoggerHook {
	return &RedisLoggerHook{SlowThreshold: 100 * time.Millisecond}
}

func (s *RedisLoggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			log.ErrorContext(ctx, "Redis Dial Error",
				log.String("addr", addr),
				log.Duration("latency", time.Since(start)),
				log.Any("err", err),
			)
		}
		return conn, err
	}
}

func (s *RedisLoggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		elapsed := time.Since(start)

		if err != nil && isExpectedRedisErr(cmd.Name(), err) {
			return err
		}
		if err == nil && elapsed <= s.SlowThreshold {
			return nil
		}

		fields := []any{
			log.String("command", cmd.Name()),
			log.String("args", redisArgs(cmd)),
			log.Duration("latency", elapsed),
		}
		if err != nil {
			log.ErrorContext(ctx, "Redis Error", append(fields, log.Any("err", err))...)
		} else {
			log.WarnContext(ctx, "Redis Slow", fields...)
		}
		return err
	}
}

func (s *RedisLoggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(start)

		fields := []any{
			log.Int("cmd_count", len(cmds)),
			log.Duration("latency", elapsed),
		}
		switch {
		case err != nil && !errors.Is(err, redis.Nil):
			log.ErrorContext(ctx, "Redis Pipeline Error", append(fields, log.Any("err", err))...)
		case elapsed > s.SlowThreshold:
			log.WarnContext(ctx, "Redis Pipeline Slow", fields...)
		}
		return err
	}
}

// isExpectedRedisErr 缓存未命中、锁竞争失败都走 redis.Nil
func isExpectedRedisErr(cmdName string, err error) bool {
	if errors.Is(err, redis.Nil) || err.Error() == "ERR no such key" {
		return true
	}
	return cmdName == "client" && strings.Contains(err.Error(), "setinfo")
}

// redisArgs publish 的负载里可能有 token，只保留频道和长度
func redisArgs(cmd redis.Cmder) string {
	args := cmd.Args()
	switch cmd.Name() {
	case "auth", "hello":
		return "[PROTECTED]"
	case "publish":
		if len(args) == 3 {
			return fmt.Sprintf("[publish %v <%d bytes>]", args[1], payloadSize(args[2]))
		}
	}
	s := fmt.Sprint(args)
	if len(s) > redisArgsLimit {
		s = s[:redisArgsLimit] + "...[truncated]"
	}
	return s
}

func payloadSize(v any) int {
	switch p := v.(type) {
	case []byte:
		return len(p)
	case string:
		return len(p)
	default:
		return len(fmt.Sprint(p))
	}
}
