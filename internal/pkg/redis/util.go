package redis

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// HSetJSON 序列化后写入哈希字段
func HSetJSON(ctx context.Context, rdb redis.Cmdable, key, field string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.HSet(ctx, key, field, b).Err()
}

// HashGetter *redis.Client 与 *redis.Tx 都满足
type HashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// HGetJSON 字段不存在时返回 found=false
func HGetJSON[T any](ctx context.Context, rdb HashGetter, key, field string) (T, bool, error) {
	var v T
	raw, err := rdb.HGet(ctx, key, field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, false, nil
		}
		return v, false, err
	}
	if err = json.Unmarshal(raw, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// PublishJSON 序列化后发布到频道
func PublishJSON(ctx context.Context, rdb redis.Cmdable, channel string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, channel, b).Err()
}

// TryLock SETNX 加锁，不重试
func TryLock(ctx context.Context, rdb redis.Cmdable, key, value string, expiration time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, value, expiration).Result()
}

// UnLock 只释放自己持有的锁
func UnLock(ctx context.Context, rdb redis.Scripter, key, value string) error {
	return unlockScript.Run(ctx, rdb, []string{key}, value).Err()
}

var unlockScript = redis.NewScript(`if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end`)
