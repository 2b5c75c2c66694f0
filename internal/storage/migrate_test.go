package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/lunatv/internal/model"
)

// seedLegacyUser 写入一个尚未迁移的用户和若干旧版散键
func seedLegacyUser(t *testing.T, s *KVStorage, mem *memAdapter, username string, records int) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.writeUser(ctx, &model.User{
		Username:  username,
		Role:      model.RoleUser,
		CreatedAt: 1,
	}))
	for i := 0; i < records; i++ {
		key := legacyPlayRecordPrefix(username) + fmt.Sprintf("source%d+%d", i, i)
		val := fmt.Sprintf(`{"title":"剧集%d","save_time":%d}`, i, i+1)
		require.NoError(t, mem.Set(ctx, key, val))
	}
}

func TestMigratePlayRecords_NoDataLoss(t *testing.T) {
	s, mem := newTestStorage()
	ctx := context.Background()
	seedLegacyUser(t, s, mem, "alice", 5)

	require.NoError(t, s.MigratePlayRecords(ctx, "alice"))

	// 合并后的 hash 恰好包含全部 5 条，值逐条一致
	fields, err := mem.HGetAll(ctx, playRecordsKey("alice"))
	require.NoError(t, err)
	require.Len(t, fields, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t,
			fmt.Sprintf(`{"title":"剧集%d","save_time":%d}`, i, i+1),
			fields[fmt.Sprintf("source%d+%d", i, i)])
	}

	// 旧键全部消失
	leftovers, err := mem.Keys(ctx, legacyPlayRecordPrefix("alice")+"*")
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	// 迁移标记已置位
	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.PlayRecordsMigrated)
}

func TestMigratePlayRecords_Idempotent(t *testing.T) {
	s, mem := newTestStorage()
	ctx := context.Background()
	seedLegacyUser(t, s, mem, "alice", 3)

	require.NoError(t, s.MigratePlayRecords(ctx, "alice"))
	scans := mem.callCount("KEYS")

	// 第二次调用是廉价空操作：标记已置位，不再扫描旧键
	require.NoError(t, s.MigratePlayRecords(ctx, "alice"))
	assert.Equal(t, scans, mem.callCount("KEYS"))

	fields, err := mem.HGetAll(ctx, playRecordsKey("alice"))
	require.NoError(t, err)
	assert.Len(t, fields, 3)
}

func TestMigratePlayRecords_ConcurrentDedup(t *testing.T) {
	s, mem := newTestStorage()
	ctx := context.Background()
	seedLegacyUser(t, s, mem, "alice", 4)

	// 放慢扫描步骤，保证两个调用在途重叠
	mem.mu.Lock()
	mem.sleepOn["KEYS"] = 100 * time.Millisecond
	mem.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.MigratePlayRecords(ctx, "alice")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// 底层迁移流程只执行了一次
	assert.Equal(t, 1, mem.callCount("KEYS"))
	assert.Equal(t, 1, mem.callCount("HSET"))
}

func TestMigratePlayRecords_NoLegacyData(t *testing.T) {
	s, _ := newTestStorage()
	ctx := context.Background()

	require.NoError(t, s.writeUser(ctx, &model.User{Username: "bob", Role: model.RoleUser}))
	require.NoError(t, s.MigratePlayRecords(ctx, "bob"))

	// 没有旧数据的用户直接视为已迁移
	u, err := s.GetUser(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, u.PlayRecordsMigrated)
}

func TestMigratePlayRecords_FailureLeavesUnmigrated(t *testing.T) {
	s, mem := newTestStorage()
	ctx := context.Background()
	seedLegacyUser(t, s, mem, "alice", 3)

	// hash 写入失败（非传输类错误，不重试直接传播）
	mem.failOp("HSET", 1, errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"))
	require.Error(t, s.MigratePlayRecords(ctx, "alice"))

	// 标记未置位，旧键仍在，重跑安全
	u, err := s.getUserDirect(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, u.PlayRecordsMigrated)
	leftovers, err := mem.Keys(ctx, legacyPlayRecordPrefix("alice")+"*")
	require.NoError(t, err)
	assert.Len(t, leftovers, 3)

	// 重新调用即可完成
	require.NoError(t, s.MigratePlayRecords(ctx, "alice"))
	u, err = s.getUserDirect(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.PlayRecordsMigrated)
}

func TestMigrateFavoritesAndSkipConfigs(t *testing.T) {
	s, mem := newTestStorage()
	ctx := context.Background()

	require.NoError(t, s.writeUser(ctx, &model.User{Username: "carol", Role: model.RoleUser}))
	require.NoError(t, mem.Set(ctx, legacyFavoritePrefix("carol")+"src+1", `{"title":"电影"}`))
	require.NoError(t, mem.Set(ctx, legacySkipConfigPrefix("carol")+"src+1", `{"enable":true}`))

	require.NoError(t, s.MigrateFavorites(ctx, "carol"))
	require.NoError(t, s.MigrateSkipConfigs(ctx, "carol"))

	favs, err := mem.HGetAll(ctx, favoritesKey("carol"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"src+1": `{"title":"电影"}`}, favs)

	skips, err := mem.HGetAll(ctx, skipConfigsKey("carol"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"src+1": `{"enable":true}`}, skips)

	u, err := s.getUserDirect(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, u.FavoritesMigrated)
	assert.True(t, u.SkipConfigsMigrated)
	assert.False(t, u.PlayRecordsMigrated)
}
