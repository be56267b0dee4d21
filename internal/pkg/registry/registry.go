package registry

import (
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/redis"
	"context"
	"strconv"
	"time"
)

// Registry 维护用户与连接句柄的映射，以及登录码的短期关联
type Registry interface {
	Bind(ctx context.Context, uid uint64, handle string) error
	Lookup(ctx context.Context, uid uint64) (string, error)
	Unbind(ctx context.Context, uid uint64) error
	UnbindHandle(ctx context.Context, uid uint64, handle string) (bool, error)

	PutLoginCode(ctx context.Context, code, handle string) error
	PeekLoginCode(ctx context.Context, code string) (string, error)
	TakeLoginCode(ctx context.Context, code string) (string, error)
	PutOpenIDCode(ctx context.Context, openID, code string) error
	GetOpenIDCode(ctx context.Context, openID string) (string, error)
}

type RedisRegistry struct {
	codeTTL time.Duration
}

func NewRedisRegistry(codeTTL time.Duration) Registry {
	return &RedisRegistry{codeTTL: codeTTL}
}

func userKey(uid uint64) string {
	return consts.WsUserHandleKey + strconv.FormatUint(uid, 10)
}

// Bind 后写覆盖先写，用户至多保留一个句柄
func (s *RedisRegistry) Bind(ctx context.Context, uid uint64, handle string) error {
	return redis.SetValue(ctx, userKey(uid), handle)
}

// Lookup 未绑定时返回空串
func (s *RedisRegistry) Lookup(ctx context.Context, uid uint64) (string, error) {
	return redis.GetValue(ctx, userKey(uid))
}

func (s *RedisRegistry) Unbind(ctx context.Context, uid uint64) error {
	return redis.DeleteKey(ctx, userKey(uid))
}

// UnbindHandle 只有当前绑定仍是 handle 时才删除，旧连接关闭不会误删新连接
func (s *RedisRegistry) UnbindHandle(ctx context.Context, uid uint64, handle string) (bool, error) {
	return redis.DeleteIfEquals(ctx, userKey(uid), handle)
}

func (s *RedisRegistry) PutLoginCode(ctx context.Context, code, handle string) error {
	return redis.SetWithExpiration(ctx, consts.WsLoginCodeKey+code, handle, s.codeTTL)
}

func (s *RedisRegistry) PeekLoginCode(ctx context.Context, code string) (string, error) {
	return redis.GetValue(ctx, consts.WsLoginCodeKey+code)
}

// TakeLoginCode 登录码只能被消费一次
func (s *RedisRegistry) TakeLoginCode(ctx context.Context, code string) (string, error) {
	return redis.GetDel(ctx, consts.WsLoginCodeKey+code)
}

func (s *RedisRegistry) PutOpenIDCode(ctx context.Context, openID, code string) error {
	return redis.SetWithExpiration(ctx, consts.WsLoginOpenIDKey+openID, code, s.codeTTL)
}

func (s *RedisRegistry) GetOpenIDCode(ctx context.Context, openID string) (string, error) {
	return redis.GetValue(ctx, consts.WsLoginOpenIDKey+openID)
}
