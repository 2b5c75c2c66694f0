package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/user/lunatv/internal/adapter"
	"github.com/user/lunatv/internal/model"
)

// GetAdminConfig 读取全局管理配置
func (s *KVStorage) GetAdminConfig(ctx context.Context) (*model.AdminConfig, error) {
	raw, err := s.adapter.Get(ctx, adminConfigKey)
	if errors.Is(err, adapter.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg model.AdminConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("管理配置损坏: %w", err)
	}
	return &cfg, nil
}

// SetAdminConfig 整体替换全局管理配置
func (s *KVStorage) SetAdminConfig(ctx context.Context, cfg *model.AdminConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.adapter.Set(ctx, adminConfigKey, string(raw))
}

// ClearAllData 管理员全量重置（不可逆）
//
// 逐个清除所有已知用户的全部数据，最后删除管理配置单例。
// 站长账号本身由配置定义，清空后依然可登录，
// 但它名下的数据（虚拟站长也可能有播放记录）一并清除。
func (s *KVStorage) ClearAllData(ctx context.Context) error {
	usernames, err := s.GetAllUsers(ctx)
	if err != nil {
		return err
	}

	// 站长可能没有记录、不在索引里，但名下数据也要清
	seen := false
	for _, name := range usernames {
		if name == s.cfg.OwnerUsername {
			seen = true
			break
		}
	}
	if !seen {
		usernames = append(usernames, s.cfg.OwnerUsername)
	}

	for _, name := range usernames {
		if err := s.deleteUserData(ctx, name); err != nil {
			return fmt.Errorf("清除用户 %s 数据失败: %w", name, err)
		}
	}

	if err := s.adapter.Del(ctx, userIndexKey, requestsKey, adminConfigKey); err != nil {
		return err
	}

	s.caches.flush()
	logrus.Warnf("已执行全量数据重置，共清除 %d 个用户", len(usernames))
	return nil
}
