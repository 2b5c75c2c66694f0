// Package adapter 把不同键值后端的原生客户端归一成统一的原语接口。
//
// 设计原则：
//   - 所有操作的返回值都是后端无关的原始类型（字符串、字符串切片、计数）
//   - 值缺失统一返回 ErrNil，而不是空串或 nil 指针
//   - 传输层错误原样抛出，不在这里捕获或重试（重试是上层包装器的职责）
package adapter

import (
	"context"
	"errors"
)

// ErrNil 表示 key 或 field 不存在
var ErrNil = errors.New("adapter: nil value")

// Adapter 键值后端原语接口
//
// 两种实现：
//   - redisAdapter：原样透传字符串，调用方自行负责 JSON 编解码（Redis / Kvrocks）
//   - upstashAdapter：后端可能把 JSON 形态的值自动解析成对象返回，
//     适配器在边界处重新序列化，保证上层看到的永远是字符串
type Adapter interface {
	// Ping 连通性探测
	Ping(ctx context.Context) error

	// Hash
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error

	// String
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	MGet(ctx context.Context, keys ...string) ([]*string, error)

	// List
	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LSet(ctx context.Context, key string, index int64, value string) error
	LRem(ctx context.Context, key string, count int64, value string) error
	LTrim(ctx context.Context, key string, start, stop int64) error

	// Set
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error

	// Sorted Set
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRank(ctx context.Context, key, member string) (int64, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZRem(ctx context.Context, key string, members ...string) error
}
