package logger

import (
	"bytes"
	"context"
	log "log/slog"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestRedisArgs(t *testing.T) {
	ctx := context.Background()

	pub := redis.NewIntCmd(ctx, "publish", "ws:push:handle:abc", []byte(`{"op":"auth","data":{"token":"secret"}}`))
	got := redisArgs(pub)
	assert.Contains(t, got, "ws:push:handle:abc")
	assert.NotContains(t, got, "secret")

	auth := redis.NewStatusCmd(ctx, "auth", "pwd")
	assert.Equal(t, "[PROTECTED]", redisArgs(auth))

	get := redis.NewStringCmd(ctx, "get", "ws:user:handle:1")
	assert.Equal(t, "[get ws:user:handle:1]", redisArgs(get))
}

func TestIsExpectedRedisErr(t *testing.T) {
	assert.True(t, isExpectedRedisErr("get", redis.Nil))
	assert.False(t, isExpectedRedisErr("get", assert.AnError))
}

func TestSQLOperation(t *testing.T) {
	assert.Equal(t, "SELECT", sqlOperation(" select * from `message`"))
	assert.Equal(t, "QUERY", sqlOperation(""))
}

func TestGormLogMode_DoesNotMutate(t *testing.T) {
	base := NewGormLogger()
	silent := base.LogMode(gormlogger.Silent)
	assert.Equal(t, gormlogger.Warn, base.LogLevel)
	assert.Equal(t, gormlogger.Silent, silent.(*SlogGormLogger).LogLevel)
}

func TestRemoteFilter_OnlyTraced(t *testing.T) {
	var local, remote bytes.Buffer
	h := &ContextHandler{&TeeHandler{handlers: []log.Handler{
		log.NewJSONHandler(&local, nil),
		&RemoteFilterHandler{next: log.NewJSONHandler(&remote, nil)},
	}}}
	l := log.New(h)

	l.InfoContext(context.Background(), "boot")
	l.InfoContext(WithTraceID(context.Background(), "evt-1"), "dispatch")

	assert.Equal(t, 2, strings.Count(local.String(), "\n"))
	assert.Equal(t, 1, strings.Count(remote.String(), "\n"))
	assert.Contains(t, remote.String(), `"trace_id":"evt-1"`)
}
