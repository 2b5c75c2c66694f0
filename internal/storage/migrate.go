package storage

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/user/lunatv/internal/model"
)

// entityMigration 一种实体类型的迁移描述
// 旧版布局：一条记录一个顶层键（前缀 + 组合键）
// 新布局：每用户一个 hash，field 为组合键
type entityMigration struct {
	name         string
	legacyPrefix func(username string) string
	hashKey      func(username string) string
	flagGet      func(u *model.User) bool
	flagSet      func(u *model.User)
}

var (
	playRecordMigration = entityMigration{
		name:         "playrecords",
		legacyPrefix: legacyPlayRecordPrefix,
		hashKey:      playRecordsKey,
		flagGet:      func(u *model.User) bool { return u.PlayRecordsMigrated },
		flagSet:      func(u *model.User) { u.PlayRecordsMigrated = true },
	}
	favoriteMigration = entityMigration{
		name:         "favorites",
		legacyPrefix: legacyFavoritePrefix,
		hashKey:      favoritesKey,
		flagGet:      func(u *model.User) bool { return u.FavoritesMigrated },
		flagSet:      func(u *model.User) { u.FavoritesMigrated = true },
	}
	skipConfigMigration = entityMigration{
		name:         "skipconfigs",
		legacyPrefix: legacySkipConfigPrefix,
		hashKey:      skipConfigsKey,
		flagGet:      func(u *model.User) bool { return u.SkipConfigsMigrated },
		flagSet:      func(u *model.User) { u.SkipConfigsMigrated = true },
	}
)

// MigratePlayRecords 在线迁移播放记录（幂等，可在每次鉴权请求时投机调用）
func (s *KVStorage) MigratePlayRecords(ctx context.Context, username string) error {
	return s.migrateEntity(ctx, username, playRecordMigration)
}

// MigrateFavorites 在线迁移收藏
func (s *KVStorage) MigrateFavorites(ctx context.Context, username string) error {
	return s.migrateEntity(ctx, username, favoriteMigration)
}

// MigrateSkipConfigs 在线迁移跳过配置
func (s *KVStorage) MigrateSkipConfigs(ctx context.Context, username string) error {
	return s.migrateEntity(ctx, username, skipConfigMigration)
}

// migrateEntity 同一用户同一实体的迁移在锁注册表里归并，
// 并发调用共享同一次执行
func (s *KVStorage) migrateEntity(ctx context.Context, username string, m entityMigration) error {
	return s.locks.Do(username+":"+m.name, func() error {
		return s.doMigrateEntity(ctx, username, m)
	})
}

// doMigrateEntity 执行迁移
//
// 步骤严格顺序：读标记 → 扫旧键 → 批量读 → 写 hash → 删旧键 → 置标记。
// 任一步失败直接传播，标记只在全部成功后落盘，
// 半途失败的用户保持未迁移状态，重跑安全（步骤天然幂等）。
func (s *KVStorage) doMigrateEntity(ctx context.Context, username string, m entityMigration) error {
	// 标记判断必须绕过用户缓存，避免拿到迁移中的过期快照
	u, err := s.getUserDirect(ctx, username)
	if err != nil {
		return err
	}
	if m.flagGet(u) {
		return nil
	}

	prefix := m.legacyPrefix(username)
	legacyKeys, err := s.adapter.Keys(ctx, prefix+"*")
	if err != nil {
		return err
	}

	// 没有旧数据的用户天然视为已迁移
	if len(legacyKeys) == 0 {
		m.flagSet(u)
		return s.writeUser(ctx, u)
	}

	vals, err := s.adapter.MGet(ctx, legacyKeys...)
	if err != nil {
		return err
	}

	fields := make(map[string]string, len(legacyKeys))
	for i, key := range legacyKeys {
		if vals[i] == nil {
			// 扫描与读取之间被删掉的键，跳过即可
			continue
		}
		fields[strings.TrimPrefix(key, prefix)] = *vals[i]
	}

	if err := s.adapter.HSet(ctx, m.hashKey(username), fields); err != nil {
		return err
	}
	if err := s.adapter.Del(ctx, legacyKeys...); err != nil {
		return err
	}

	m.flagSet(u)
	if err := s.writeUser(ctx, u); err != nil {
		return err
	}

	logrus.WithField("user", username).Infof("%s 迁移完成，共 %d 条", m.name, len(fields))
	return nil
}
