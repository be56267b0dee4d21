package ws

import (
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/redis"
	"context"
	"errors"

	"github.com/goccy/go-json"
)

// ErrHandleGone 句柄对应的连接已不存在
var ErrHandleGone = errors.New("connection handle gone")

// Fabric 推送通道，只提供两种原语
type Fabric interface {
	PushToHandle(ctx context.Context, handle string, env *Envelope) error
	PushToGroup(ctx context.Context, group string, env *Envelope) error
}

// RedisFabric 基于 Redis Pub/Sub，每个连接订阅自己的句柄频道和广播组频道
type RedisFabric struct{}

func NewRedisFabric() Fabric {
	return &RedisFabric{}
}

func HandleChannel(handle string) string {
	return consts.WsPushHandleTopic + handle
}

func GroupChannel(group string) string {
	return consts.WsPushGroupTopic + group
}

// PushToHandle 没有任何订阅者时返回 ErrHandleGone
func (s *RedisFabric) PushToHandle(ctx context.Context, handle string, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	n, err := redis.Publish(ctx, HandleChannel(handle), data)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrHandleGone
	}
	return nil
}

func (s *RedisFabric) PushToGroup(ctx context.Context, group string, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = redis.Publish(ctx, GroupChannel(group), data)
	return err
}
