package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// MetaCache 外部库元数据缓存封装（有界 LRU + TTL）
// 用于缓存体积可能较大的全局值（如网盘扫描结果），避免无界内存增长
type MetaCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
}

// NewMetaCache 初始化，size 是最大缓存条数（如 256），ttl 是数据有效期（如 30 分钟）
func NewMetaCache[T any](size int, ttl time.Duration) *MetaCache[T] {
	// lru.New 是线程安全的
	c, _ := lru.New[string, CacheItem[T]](size)
	return &MetaCache[T]{
		storage: c,
		ttl:     ttl,
	}
}

// Set 写入（LRU 中 Add 会自动处理更新）
func (c *MetaCache[T]) Set(key string, value T) {
	item := CacheItem[T]{
		Value:     value,
		ExpiredAt: time.Now().Add(c.ttl),
	}
	c.storage.Add(key, item)
}

// Get 读取（带过期检查）
func (c *MetaCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	// 检查是否过期
	if time.Now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}

	return item.Value, true
}

// Delete 删除
func (c *MetaCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

// Clear 清空
func (c *MetaCache[T]) Clear() {
	c.storage.Purge()
}

// Len 当前条数
func (c *MetaCache[T]) Len() int {
	return c.storage.Len()
}
