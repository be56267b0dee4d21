package redis

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

const lockPollInterval = 100 * time.Millisecond

var ErrLockTimeout = errors.New("获取锁超时")

// Lock 已持有的分布式锁，使用完毕后必须 Release
type Lock struct {
	key   string
	owner string
}

// AcquireLock 在 wait 时间内轮询抢锁，超时返回 ErrLockTimeout
func AcquireLock(ctx context.Context, key string, expire, wait time.Duration) (*Lock, error) {
	owner := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := Rdb.SetNX(ctx, key, owner, expire).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{key: key, owner: owner}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Release 释放锁，只删除自己持有的那一把
func (l *Lock) Release() {
	if l == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := DeleteIfEquals(ctx, l.key, l.owner); err != nil {
		log.Warn("release lock failed", "key", l.key, "err", err)
	}
}
