package adapter

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ClientProvider 延迟提供底层连接
// 连接的创建、重连与保活由连接生命周期管理器负责；
// 地址缺失等配置错误在首次取用时暴露，而不是在适配器构造时
type ClientProvider interface {
	Client(ctx context.Context) (*redis.Client, error)
}

// redisAdapter 基于 go-redis 的原样字符串适配器
// Redis 与 Kvrocks 共用同一实现（Kvrocks 兼容 Redis 协议）
type redisAdapter struct {
	provider ClientProvider
}

// NewRedisAdapter 创建 Redis 协议适配器
func NewRedisAdapter(provider ClientProvider) Adapter {
	return &redisAdapter{provider: provider}
}

func (a *redisAdapter) Ping(ctx context.Context) error {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	return c.Ping(ctx).Err()
}

func (a *redisAdapter) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	args := make(map[string]interface{}, len(fields))
	for f, v := range fields {
		args[f] = v
	}
	return c.HSet(ctx, key, args).Err()
}

func (a *redisAdapter) HGet(ctx context.Context, key, field string) (string, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return "", err
	}
	v, err := c.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNil
	}
	return v, err
}

func (a *redisAdapter) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.HGetAll(ctx, key).Result()
}

func (a *redisAdapter) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	return c.HDel(ctx, key, fields...).Err()
}

func (a *redisAdapter) Set(ctx context.Context, key, value string) error {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, value, 0).Err()
}

func (a *redisAdapter) Get(ctx context.Context, key string) (string, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return "", err
	}
	v, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNil
	}
	return v, err
}

func (a *redisAdapter) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	return c.Del(ctx, keys...).Err()
}

func (a *redisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return false, err
	}
	n, err := c.Exists(ctx, key).Result()
	return n > 0, err
}

func (a *redisAdapter) Keys(ctx context.Context, pattern string) ([]string, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.Keys(ctx, pattern).Result()
}

func (a *redisAdapter) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	c, err := a.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	vals, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*string, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[i] = &s
		}
	}
	return out, nil
}

func (a *redisAdapter) LPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return c.LPush(ctx, key, args...).Err()
}

func (a *redisAdapter) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.LRange(ctx, key, start, stop).Result()
}

func (a *redisAdapter) LSet(ctx context.Context, key string, index int64, value string) error {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	return c.LSet(ctx, key, index, value).Err()
}

func (a *redisAdapter) LRem(ctx context.Context, key string, count int64, value string) error {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	return c.LRem(ctx, key, count, value).Err()
}

func (a *redisAdapter) LTrim(ctx context.Context, key string, start, stop int64) error {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	return c.LTrim(ctx, key, start, stop).Err()
}

func (a *redisAdapter) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return c.SAdd(ctx, key, args...).Err()
}

func (a *redisAdapter) SMembers(ctx context.Context, key string) ([]string, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.SMembers(ctx, key).Result()
}

func (a *redisAdapter) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return c.SRem(ctx, key, args...).Err()
}

func (a *redisAdapter) ZAdd(ctx context.Context, key string, score float64, member string) error {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	return c.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (a *redisAdapter) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.ZRange(ctx, key, start, stop).Result()
}

func (a *redisAdapter) ZRank(ctx context.Context, key, member string) (int64, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	rank, err := c.ZRank(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNil
	}
	return rank, err
}

func (a *redisAdapter) ZCard(ctx context.Context, key string) (int64, error) {
	c, err := a.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return c.ZCard(ctx, key).Result()
}

func (a *redisAdapter) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	c, err := a.provider.Client(ctx)
	if err != nil {
		return err
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return c.ZRem(ctx, key, args...).Err()
}
