package storage

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/user/lunatv/internal/config"
	"github.com/user/lunatv/internal/model"
	"github.com/user/lunatv/internal/utils"
)

// 缓存清扫间隔与库元数据缓存参数
const (
	cacheSweepInterval = time.Minute
	libraryCacheSize   = 256
	libraryCacheTTL    = 30 * time.Minute
)

// ownerExistsKey 站长存在性缓存的固定键
const ownerExistsKey = "owner:exists"

// storeCaches 进程内短时缓存
//
// 三个独立缓存，都在组合根随存储一起构造（显式注入，不用包级全局）：
//   - user：用户记录，TTL 6 小时，每分钟清扫；写用户时同步失效
//   - owner：站长是否有后端记录，TTL 10 分钟；避免每次分页都打一次后端
//   - library：外部库元数据（全局值），有界 LRU，防止大 blob 无界占用内存
type storeCaches struct {
	user    *gocache.Cache
	owner   *gocache.Cache
	library *utils.MetaCache[string]
}

func newStoreCaches(cfg *config.Config) *storeCaches {
	return &storeCaches{
		user:    gocache.New(cfg.UserCacheTTL, cacheSweepInterval),
		owner:   gocache.New(cfg.OwnerCacheTTL, cacheSweepInterval),
		library: utils.NewMetaCache[string](libraryCacheSize, libraryCacheTTL),
	}
}

func (c *storeCaches) getUser(username string) (*model.User, bool) {
	v, ok := c.user.Get(username)
	if !ok {
		return nil, false
	}
	u, ok := v.(*model.User)
	return u, ok
}

func (c *storeCaches) setUser(u *model.User) {
	c.user.SetDefault(u.Username, u)
}

func (c *storeCaches) invalidateUser(username string) {
	c.user.Delete(username)
}

func (c *storeCaches) getOwnerExists() (bool, bool) {
	v, ok := c.owner.Get(ownerExistsKey)
	if !ok {
		return false, false
	}
	exists, ok := v.(bool)
	return exists, ok
}

func (c *storeCaches) setOwnerExists(exists bool) {
	c.owner.SetDefault(ownerExistsKey, exists)
}

func (c *storeCaches) invalidateOwner() {
	c.owner.Delete(ownerExistsKey)
}

func (c *storeCaches) flush() {
	c.user.Flush()
	c.owner.Flush()
	c.library.Clear()
}
