package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const compareAndDeleteScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// SetValue 设置键值对
func SetValue(ctx context.Context, key string, value interface{}) error {
	return Rdb.Set(ctx, key, value, 0).Err()
}

// SetWithExpiration 设置键值对并设置过期时间
func SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return Rdb.Set(ctx, key, value, expiration).Err()
}

// GetValue 获取字符串类型的值
func GetValue(ctx context.Context, key string) (string, error) {
	value, err := Rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// GetDel 获取并删除，key 只会被消费一次
func GetDel(ctx context.Context, key string) (string, error) {
	value, err := Rdb.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// DeleteIfEquals 值等于 value 时才删除，返回是否删除
func DeleteIfEquals(ctx context.Context, key string, value interface{}) (bool, error) {
	n, err := Rdb.Eval(ctx, compareAndDeleteScript, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteKey 删除一个键
func DeleteKey(ctx context.Context, key string) error {
	return Rdb.Del(ctx, key).Err()
}

// Publish 发布消息，返回收到消息的订阅者数量
func Publish(ctx context.Context, channel string, message interface{}) (int64, error) {
	return Rdb.Publish(ctx, channel, message).Result()
}

// Subscribe 订阅频道
func Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return Rdb.Subscribe(ctx, channels...)
}

// GetRdbClient 获取redis客户端
func GetRdbClient() *redis.Client {
	return Rdb
}
