package storage

import (
	"context"
	"errors"

	"github.com/user/lunatv/internal/adapter"
)

// GetGlobalValue 读取全局值（外部协作子系统的通用命名空间）
// 经过有界的库元数据缓存：网盘扫描结果这类 blob 体积大、读多写少
func (s *KVStorage) GetGlobalValue(ctx context.Context, name string) (string, error) {
	if v, ok := s.caches.library.Get(name); ok {
		return v, nil
	}

	v, err := s.adapter.Get(ctx, globalValueKey(name))
	if errors.Is(err, adapter.ErrNil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	s.caches.library.Set(name, v)
	return v, nil
}

// SetGlobalValue 写入全局值，同步失效缓存后返回
func (s *KVStorage) SetGlobalValue(ctx context.Context, name, value string) error {
	if err := s.adapter.Set(ctx, globalValueKey(name), value); err != nil {
		return err
	}
	s.caches.library.Delete(name)
	return nil
}

// DeleteGlobalValue 删除全局值
func (s *KVStorage) DeleteGlobalValue(ctx context.Context, name string) error {
	if err := s.adapter.Del(ctx, globalValueKey(name)); err != nil {
		return err
	}
	s.caches.library.Delete(name)
	return nil
}
