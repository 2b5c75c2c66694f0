package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/lunatv/internal/adapter"
	"github.com/user/lunatv/internal/model"
)

// GetSkipConfig 读取片头片尾跳过配置
func (s *KVStorage) GetSkipConfig(ctx context.Context, username, source, id string) (*model.SkipConfig, error) {
	raw, err := s.adapter.HGet(ctx, skipConfigsKey(username), compositeKey(source, id))
	if errors.Is(err, adapter.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg model.SkipConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("跳过配置损坏（%s/%s+%s）: %w", username, source, id, err)
	}
	return &cfg, nil
}

// SetSkipConfig 写入跳过配置（每个源条目一条）
func (s *KVStorage) SetSkipConfig(ctx context.Context, username, source, id string, cfg *model.SkipConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.adapter.HSet(ctx, skipConfigsKey(username), map[string]string{
		compositeKey(source, id): string(raw),
	})
}

// GetAllSkipConfigs 读取用户全部跳过配置
func (s *KVStorage) GetAllSkipConfigs(ctx context.Context, username string) (map[string]*model.SkipConfig, error) {
	raw, err := s.adapter.HGetAll(ctx, skipConfigsKey(username))
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.SkipConfig, len(raw))
	for field, v := range raw {
		var cfg model.SkipConfig
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return nil, fmt.Errorf("跳过配置损坏（%s/%s）: %w", username, field, err)
		}
		out[field] = &cfg
	}
	return out, nil
}

// DeleteSkipConfig 删除跳过配置
func (s *KVStorage) DeleteSkipConfig(ctx context.Context, username, source, id string) error {
	return s.adapter.HDel(ctx, skipConfigsKey(username), compositeKey(source, id))
}
