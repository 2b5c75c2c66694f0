// Package storage 实现统一的持久化门面（IStorage 契约）。
//
// 同一套实现通过 adapter.Adapter 接口运行在三种键值后端之上
// （Redis / Kvrocks / Upstash），上层调用方不感知后端差异。
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/lunatv/internal/adapter"
	"github.com/user/lunatv/internal/config"
	"github.com/user/lunatv/internal/model"
)

// 逻辑错误（区别于传输层错误，不参与重试）
var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("storage: record not found")
	// ErrUserExists 用户名已被占用
	ErrUserExists = errors.New("storage: user already exists")
	// ErrOwnerProtected 站长账号不允许删除/封禁/降级
	ErrOwnerProtected = errors.New("storage: owner account is protected")
	// ErrOidcSubBound 外部身份已绑定到其他账号
	ErrOidcSubBound = errors.New("storage: oidc subject already bound")
)

// Storage 持久化门面契约
// 应用层（HTTP 处理器、后台任务）只依赖这个接口；更换后端不改调用方
type Storage interface {
	// 用户
	CreateUser(ctx context.Context, username, password string) (*model.User, error)
	GetUser(ctx context.Context, username string) (*model.User, error)
	SaveUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, username string) error
	UserExists(ctx context.Context, username string) (bool, error)
	CheckPassword(ctx context.Context, username, password string) (bool, error)
	ChangePassword(ctx context.Context, username, newPassword string) error
	SetUserRole(ctx context.Context, username, role string) error
	SetUserBanned(ctx context.Context, username string, banned bool) error
	SetUserTags(ctx context.Context, username string, tags []string) error
	GetAllUsers(ctx context.Context) ([]string, error)
	GetUserListV2(ctx context.Context, offset, limit int) (*model.UserListResult, error)
	GetUserByOidcSub(ctx context.Context, sub string) (*model.User, error)
	BindOidcSub(ctx context.Context, username, sub string) error

	// 播放记录
	GetPlayRecord(ctx context.Context, username, source, id string) (*model.PlayRecord, error)
	SetPlayRecord(ctx context.Context, username, source, id string, record *model.PlayRecord) error
	GetAllPlayRecords(ctx context.Context, username string) (map[string]*model.PlayRecord, error)
	DeletePlayRecord(ctx context.Context, username, source, id string) error
	CleanupOldPlayRecords(ctx context.Context, username string) error
	MigratePlayRecords(ctx context.Context, username string) error

	// 收藏
	GetFavorite(ctx context.Context, username, source, id string) (*model.Favorite, error)
	SetFavorite(ctx context.Context, username, source, id string, fav *model.Favorite) error
	GetAllFavorites(ctx context.Context, username string) (map[string]*model.Favorite, error)
	DeleteFavorite(ctx context.Context, username, source, id string) error
	MigrateFavorites(ctx context.Context, username string) error

	// 跳过配置
	GetSkipConfig(ctx context.Context, username, source, id string) (*model.SkipConfig, error)
	SetSkipConfig(ctx context.Context, username, source, id string, cfg *model.SkipConfig) error
	GetAllSkipConfigs(ctx context.Context, username string) (map[string]*model.SkipConfig, error)
	DeleteSkipConfig(ctx context.Context, username, source, id string) error
	MigrateSkipConfigs(ctx context.Context, username string) error

	// 管理配置（单例，整体读写）
	GetAdminConfig(ctx context.Context) (*model.AdminConfig, error)
	SetAdminConfig(ctx context.Context, cfg *model.AdminConfig) error

	// 通知
	AddNotification(ctx context.Context, username string, n *model.Notification) error
	GetNotifications(ctx context.Context, username string, limit int) ([]*model.Notification, error)
	MarkNotificationsRead(ctx context.Context, username string, ids ...string) error
	ClearNotifications(ctx context.Context, username string) error

	// 求片
	AddMovieRequest(ctx context.Context, req *model.MovieRequest, requester string) (*model.MovieRequest, error)
	GetMovieRequest(ctx context.Context, id string) (*model.MovieRequest, error)
	GetAllMovieRequests(ctx context.Context) ([]*model.MovieRequest, error)
	FulfillMovieRequest(ctx context.Context, id, source string) error
	DeleteMovieRequest(ctx context.Context, id string) error
	GetUserMovieRequests(ctx context.Context, username string) ([]*model.MovieRequest, error)

	// 全局值（协作子系统的通用逃生舱，字符串进字符串出）
	GetGlobalValue(ctx context.Context, name string) (string, error)
	SetGlobalValue(ctx context.Context, name, value string) error
	DeleteGlobalValue(ctx context.Context, name string) error

	// 维护
	ClearAllData(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// KVStorage 键值后端上的门面实现
// 由适配器 + 重试包装器 + 连接管理器组合而成，三种后端共用
type KVStorage struct {
	adapter adapter.Adapter
	cfg     *config.Config
	conn    *ConnManager // Upstash 为 nil（无状态 HTTP）
	caches  *storeCaches
	locks   *lockRegistry

	// 写入播放记录后是否异步触发清理（测试中关闭以便断言调用次数）
	asyncCleanup bool
}

var _ Storage = (*KVStorage)(nil)

// New 按配置构造存储实现（启动时解析一次的类型化工厂，无运行期字符串分发）
func New(cfg *config.Config) (*KVStorage, error) {
	switch cfg.StorageType {
	case config.StorageRedis:
		conn := NewConnManager("Redis", cfg.RedisURL)
		return newKVStorage(adapter.NewRedisAdapter(conn), cfg, conn), nil
	case config.StorageKvrocks:
		conn := NewConnManager("Kvrocks", cfg.KvrocksURL)
		return newKVStorage(adapter.NewRedisAdapter(conn), cfg, conn), nil
	case config.StorageUpstash:
		return newKVStorage(adapter.NewUpstashAdapter(cfg.UpstashURL, cfg.UpstashToken), cfg, nil), nil
	}
	return nil, fmt.Errorf("storage: 不支持的后端类型 %q", cfg.StorageType)
}

// newKVStorage 组装门面：所有适配器调用都经过重试包装
func newKVStorage(a adapter.Adapter, cfg *config.Config, conn *ConnManager) *KVStorage {
	return &KVStorage{
		adapter:      newRetryAdapter(a, conn, defaultMaxAttempts, defaultBackoffUnit),
		cfg:          cfg,
		conn:         conn,
		caches:       newStoreCaches(cfg),
		locks:        newLockRegistry(),
		asyncCleanup: true,
	}
}

// Ping 探测后端连通性
func (s *KVStorage) Ping(ctx context.Context) error {
	return s.adapter.Ping(ctx)
}

// Close 释放底层连接
func (s *KVStorage) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
