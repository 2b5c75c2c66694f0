package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/user/lunatv/internal/adapter"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffUnit = time.Second // 第 n 次失败后等待 n * backoffUnit
)

// ErrMaxRetries 可重试错误在达到重试上限后的统一失败
var ErrMaxRetries = errors.New("storage: max retries exceeded")

// isRetryableErr 判定错误是否属于可重试的传输层故障
// 连接被拒/重置、断管、EOF、域名解析失败这一类可重试；
// 其余（认证失败、命令格式错误、值缺失 ErrNil 等）立即向上传播
func isRetryableErr(err error) bool {
	if err == nil || errors.Is(err, adapter.ErrNil) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"use of closed network connection",
		"client is closed",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// retryAdapter 重试包装器：给每个适配器原语加上有界重试与退避
type retryAdapter struct {
	inner       adapter.Adapter
	conn        *ConnManager // 可为 nil
	maxAttempts int
	backoffUnit time.Duration
}

var _ adapter.Adapter = (*retryAdapter)(nil)

func newRetryAdapter(inner adapter.Adapter, conn *ConnManager, maxAttempts int, backoffUnit time.Duration) *retryAdapter {
	return &retryAdapter{
		inner:       inner,
		conn:        conn,
		maxAttempts: maxAttempts,
		backoffUnit: backoffUnit,
	}
}

// withRetry 执行 op；可重试错误按 n * backoffUnit 退避后重试，
// 致命错误立即传播；达到上限后以 ErrMaxRetries 失败
func (r *retryAdapter) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := fn()
		if err == nil || !isRetryableErr(err) {
			return err
		}
		lastErr = err
		logrus.WithField("op", op).Warnf("操作失败（第 %d/%d 次）: %v", attempt, r.maxAttempts, err)

		// 连接报告自身已关闭时先丢弃，重试时重建
		if r.conn != nil {
			r.conn.Reset(err)
		}

		if attempt < r.maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * r.backoffUnit):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("%s: %w: %v", op, ErrMaxRetries, lastErr)
}

func (r *retryAdapter) Ping(ctx context.Context) error {
	return r.withRetry(ctx, "PING", func() error { return r.inner.Ping(ctx) })
}

func (r *retryAdapter) HSet(ctx context.Context, key string, fields map[string]string) error {
	return r.withRetry(ctx, "HSET", func() error { return r.inner.HSet(ctx, key, fields) })
}

func (r *retryAdapter) HGet(ctx context.Context, key, field string) (string, error) {
	var out string
	err := r.withRetry(ctx, "HGET", func() error {
		var e error
		out, e = r.inner.HGet(ctx, key, field)
		return e
	})
	return out, err
}

func (r *retryAdapter) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var out map[string]string
	err := r.withRetry(ctx, "HGETALL", func() error {
		var e error
		out, e = r.inner.HGetAll(ctx, key)
		return e
	})
	return out, err
}

func (r *retryAdapter) HDel(ctx context.Context, key string, fields ...string) error {
	return r.withRetry(ctx, "HDEL", func() error { return r.inner.HDel(ctx, key, fields...) })
}

func (r *retryAdapter) Set(ctx context.Context, key, value string) error {
	return r.withRetry(ctx, "SET", func() error { return r.inner.Set(ctx, key, value) })
}

func (r *retryAdapter) Get(ctx context.Context, key string) (string, error) {
	var out string
	err := r.withRetry(ctx, "GET", func() error {
		var e error
		out, e = r.inner.Get(ctx, key)
		return e
	})
	return out, err
}

func (r *retryAdapter) Del(ctx context.Context, keys ...string) error {
	return r.withRetry(ctx, "DEL", func() error { return r.inner.Del(ctx, keys...) })
}

func (r *retryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	var out bool
	err := r.withRetry(ctx, "EXISTS", func() error {
		var e error
		out, e = r.inner.Exists(ctx, key)
		return e
	})
	return out, err
}

func (r *retryAdapter) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	err := r.withRetry(ctx, "KEYS", func() error {
		var e error
		out, e = r.inner.Keys(ctx, pattern)
		return e
	})
	return out, err
}

func (r *retryAdapter) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	var out []*string
	err := r.withRetry(ctx, "MGET", func() error {
		var e error
		out, e = r.inner.MGet(ctx, keys...)
		return e
	})
	return out, err
}

func (r *retryAdapter) LPush(ctx context.Context, key string, values ...string) error {
	return r.withRetry(ctx, "LPUSH", func() error { return r.inner.LPush(ctx, key, values...) })
}

func (r *retryAdapter) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var out []string
	err := r.withRetry(ctx, "LRANGE", func() error {
		var e error
		out, e = r.inner.LRange(ctx, key, start, stop)
		return e
	})
	return out, err
}

func (r *retryAdapter) LSet(ctx context.Context, key string, index int64, value string) error {
	return r.withRetry(ctx, "LSET", func() error { return r.inner.LSet(ctx, key, index, value) })
}

func (r *retryAdapter) LRem(ctx context.Context, key string, count int64, value string) error {
	return r.withRetry(ctx, "LREM", func() error { return r.inner.LRem(ctx, key, count, value) })
}

func (r *retryAdapter) LTrim(ctx context.Context, key string, start, stop int64) error {
	return r.withRetry(ctx, "LTRIM", func() error { return r.inner.LTrim(ctx, key, start, stop) })
}

func (r *retryAdapter) SAdd(ctx context.Context, key string, members ...string) error {
	return r.withRetry(ctx, "SADD", func() error { return r.inner.SAdd(ctx, key, members...) })
}

func (r *retryAdapter) SMembers(ctx context.Context, key string) ([]string, error) {
	var out []string
	err := r.withRetry(ctx, "SMEMBERS", func() error {
		var e error
		out, e = r.inner.SMembers(ctx, key)
		return e
	})
	return out, err
}

func (r *retryAdapter) SRem(ctx context.Context, key string, members ...string) error {
	return r.withRetry(ctx, "SREM", func() error { return r.inner.SRem(ctx, key, members...) })
}

func (r *retryAdapter) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.withRetry(ctx, "ZADD", func() error { return r.inner.ZAdd(ctx, key, score, member) })
}

func (r *retryAdapter) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var out []string
	err := r.withRetry(ctx, "ZRANGE", func() error {
		var e error
		out, e = r.inner.ZRange(ctx, key, start, stop)
		return e
	})
	return out, err
}

func (r *retryAdapter) ZRank(ctx context.Context, key, member string) (int64, error) {
	var out int64
	err := r.withRetry(ctx, "ZRANK", func() error {
		var e error
		out, e = r.inner.ZRank(ctx, key, member)
		return e
	})
	return out, err
}

func (r *retryAdapter) ZCard(ctx context.Context, key string) (int64, error) {
	var out int64
	err := r.withRetry(ctx, "ZCARD", func() error {
		var e error
		out, e = r.inner.ZCard(ctx, key)
		return e
	})
	return out, err
}

func (r *retryAdapter) ZRem(ctx context.Context, key string, members ...string) error {
	return r.withRetry(ctx, "ZREM", func() error { return r.inner.ZRem(ctx, key, members...) })
}
