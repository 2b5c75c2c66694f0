package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/lunatv/internal/adapter"
	"github.com/user/lunatv/internal/model"
)

// CreateUser 创建用户
// 用户名全局唯一且不可变；与站长同名的账号自动获得 owner 角色
func (s *KVStorage) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	exists, err := s.UserExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	// 密码哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := model.RoleUser
	if username == s.cfg.OwnerUsername {
		role = model.RoleOwner
	}

	user := &model.User{
		Username:     username,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UnixMilli(),
		// 新账号没有旧版数据，直接视为已完成迁移
		PlayRecordsMigrated: true,
		FavoritesMigrated:   true,
		SkipConfigsMigrated: true,
	}

	if err := s.writeUser(ctx, user); err != nil {
		return nil, err
	}
	if err := s.adapter.ZAdd(ctx, userIndexKey, float64(user.CreatedAt), username); err != nil {
		return nil, err
	}

	// 站长记录落库后，存在性缓存需要失效
	if username == s.cfg.OwnerUsername {
		s.caches.invalidateOwner()
	}
	return user, nil
}

// GetUser 读取用户记录（经过用户缓存）
func (s *KVStorage) GetUser(ctx context.Context, username string) (*model.User, error) {
	if u, ok := s.caches.getUser(username); ok {
		return u, nil
	}

	u, err := s.getUserDirect(ctx, username)
	if err != nil {
		return nil, err
	}
	s.caches.setUser(u)
	return u, nil
}

// getUserDirect 绕过缓存直读用户记录
// 迁移过程中必须走这里，避免基于过期缓存判断迁移标记
func (s *KVStorage) getUserDirect(ctx context.Context, username string) (*model.User, error) {
	raw, err := s.adapter.Get(ctx, userInfoKey(username))
	if errors.Is(err, adapter.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("用户记录损坏（%s）: %w", username, err)
	}
	return &u, nil
}

// writeUser 落盘并同步失效缓存
func (s *KVStorage) writeUser(ctx context.Context, u *model.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.adapter.Set(ctx, userInfoKey(u.Username), string(raw)); err != nil {
		return err
	}
	s.caches.invalidateUser(u.Username)
	return nil
}

// SaveUser 整体保存用户记录
// 迁移标记单调：已置 true 的标记不允许被这里重置
func (s *KVStorage) SaveUser(ctx context.Context, user *model.User) error {
	if old, err := s.getUserDirect(ctx, user.Username); err == nil {
		user.PlayRecordsMigrated = user.PlayRecordsMigrated || old.PlayRecordsMigrated
		user.FavoritesMigrated = user.FavoritesMigrated || old.FavoritesMigrated
		user.SkipConfigsMigrated = user.SkipConfigsMigrated || old.SkipConfigsMigrated
	}
	return s.writeUser(ctx, user)
}

// UserExists 用户记录是否存在
func (s *KVStorage) UserExists(ctx context.Context, username string) (bool, error) {
	return s.adapter.Exists(ctx, userInfoKey(username))
}

// CheckPassword 校验密码
func (s *KVStorage) CheckPassword(ctx context.Context, username, password string) (bool, error) {
	u, err := s.GetUser(ctx, username)
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil, nil
}

// ChangePassword 修改密码
func (s *KVStorage) ChangePassword(ctx context.Context, username, newPassword string) error {
	u, err := s.getUserDirect(ctx, username)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.writeUser(ctx, u)
}

// SetUserRole 调整角色；站长角色不可变更
func (s *KVStorage) SetUserRole(ctx context.Context, username, role string) error {
	if username == s.cfg.OwnerUsername {
		return ErrOwnerProtected
	}
	u, err := s.getUserDirect(ctx, username)
	if err != nil {
		return err
	}
	u.Role = role
	return s.writeUser(ctx, u)
}

// SetUserBanned 封禁 / 解封；站长不可封禁
func (s *KVStorage) SetUserBanned(ctx context.Context, username string, banned bool) error {
	if username == s.cfg.OwnerUsername && banned {
		return ErrOwnerProtected
	}
	u, err := s.getUserDirect(ctx, username)
	if err != nil {
		return err
	}
	u.Banned = banned
	return s.writeUser(ctx, u)
}

// SetUserTags 更新用户组标签
func (s *KVStorage) SetUserTags(ctx context.Context, username string, tags []string) error {
	u, err := s.getUserDirect(ctx, username)
	if err != nil {
		return err
	}
	u.Tags = tags
	return s.writeUser(ctx, u)
}

// DeleteUser 删除账号并级联清除其全部数据；站长不可删除
func (s *KVStorage) DeleteUser(ctx context.Context, username string) error {
	if username == s.cfg.OwnerUsername {
		return ErrOwnerProtected
	}
	if err := s.deleteUserData(ctx, username); err != nil {
		return err
	}
	return s.adapter.ZRem(ctx, userIndexKey, username)
}

// deleteUserData 清除某个用户名下的全部实体
// 包括合并后的 hash 和迁移未完成账号可能残留的旧版散键（防御性清理）
func (s *KVStorage) deleteUserData(ctx context.Context, username string) error {
	// 先读一次记录，拿到需要一并清除的外部身份索引
	var oidcSub string
	if u, err := s.getUserDirect(ctx, username); err == nil {
		oidcSub = u.OidcSub
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	keys := []string{
		playRecordsKey(username),
		favoritesKey(username),
		skipConfigsKey(username),
		notificationsKey(username),
		userRequestsKey(username),
		userInfoKey(username),
	}
	if oidcSub != "" {
		keys = append(keys, oidcSubKey(oidcSub))
	}

	// 旧版散键兜底
	for _, prefix := range []string{
		legacyPlayRecordPrefix(username),
		legacyFavoritePrefix(username),
		legacySkipConfigPrefix(username),
	} {
		legacy, err := s.adapter.Keys(ctx, prefix+"*")
		if err != nil {
			return err
		}
		keys = append(keys, legacy...)
	}

	if err := s.adapter.Del(ctx, keys...); err != nil {
		return err
	}
	s.caches.invalidateUser(username)
	return nil
}

// GetAllUsers 按注册时间返回全部用户名
func (s *KVStorage) GetAllUsers(ctx context.Context) ([]string, error) {
	return s.adapter.ZRange(ctx, userIndexKey, 0, -1)
}

// ownerHasRecord 站长是否有后端记录（经过存在性缓存）
func (s *KVStorage) ownerHasRecord(ctx context.Context) (bool, error) {
	if exists, ok := s.caches.getOwnerExists(); ok {
		return exists, nil
	}
	exists, err := s.UserExists(ctx, s.cfg.OwnerUsername)
	if err != nil {
		return false, err
	}
	s.caches.setOwnerExists(exists)
	return exists, nil
}

// GetUserListV2 分页用户列表，按注册时间排序
//
// 站长永远是第一页的首位，无论注册时间落在哪一页。
// 概念列表 = [站长] + 其余用户（按注册时间升序）：
//   - 站长已在索引中：从分页区间里按排名剔除它，总数不变
//   - 站长无记录 / 未进索引：第一页首位合成一个虚拟条目，总数 +1
//
// 两种情况下后续页的偏移量都整体前移一位（首位被站长占掉）。
func (s *KVStorage) GetUserListV2(ctx context.Context, offset, limit int) (*model.UserListResult, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}

	ownerExists, err := s.ownerHasRecord(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := s.adapter.ZCard(ctx, userIndexKey)
	if err != nil {
		return nil, err
	}

	// 站长在索引中的排名；无记录或尚未进索引时为 -1
	ownerRank := int64(-1)
	if ownerExists {
		rank, err := s.adapter.ZRank(ctx, userIndexKey, s.cfg.OwnerUsername)
		if err == nil {
			ownerRank = rank
		} else if !errors.Is(err, adapter.ErrNil) {
			return nil, err
		}
	}

	total := int(indexed)
	if ownerRank < 0 {
		total++
	}

	// 非站长条目在概念列表中从位置 1 开始
	var start, stop int64
	if offset == 0 {
		start, stop = 0, int64(limit-2)
	} else {
		start, stop = int64(offset-1), int64(offset+limit-2)
	}

	var names []string
	if stop >= start {
		if ownerRank < 0 {
			names, err = s.adapter.ZRange(ctx, userIndexKey, start, stop)
		} else {
			names, err = s.indexRangeExcluding(ctx, start, stop, ownerRank)
		}
		if err != nil {
			return nil, err
		}
	}

	items, err := s.loadUserListItems(ctx, names)
	if err != nil {
		return nil, err
	}

	if offset == 0 {
		owner, err := s.ownerListItem(ctx, ownerExists)
		if err != nil {
			return nil, err
		}
		items = append([]model.UserListItem{owner}, items...)
	}

	return &model.UserListResult{Users: items, Total: total}, nil
}

// indexRangeExcluding 读取剔除 skip 排名后的索引区间 [start, stop]
// 排名在区间之前时区间整体后移一位；落在区间内时多取一个并按名字剔除
func (s *KVStorage) indexRangeExcluding(ctx context.Context, start, stop, skip int64) ([]string, error) {
	switch {
	case skip < start:
		start, stop = start+1, stop+1
	case skip <= stop:
		stop++
	}
	names, err := s.adapter.ZRange(ctx, userIndexKey, start, stop)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if n != s.cfg.OwnerUsername {
			out = append(out, n)
		}
	}
	return out, nil
}

// ownerListItem 第一页首位的站长条目；没有存储记录时合成
func (s *KVStorage) ownerListItem(ctx context.Context, ownerExists bool) (model.UserListItem, error) {
	if ownerExists {
		u, err := s.GetUser(ctx, s.cfg.OwnerUsername)
		if err == nil {
			return model.UserListItem{
				Username:  u.Username,
				Role:      u.Role,
				Banned:    u.Banned,
				CreatedAt: u.CreatedAt,
			}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return model.UserListItem{}, err
		}
	}
	return model.UserListItem{Username: s.cfg.OwnerUsername, Role: model.RoleOwner}, nil
}

// loadUserListItems 批量读取用户记录并转成列表条目
func (s *KVStorage) loadUserListItems(ctx context.Context, names []string) ([]model.UserListItem, error) {
	if len(names) == 0 {
		return []model.UserListItem{}, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = userInfoKey(name)
	}
	vals, err := s.adapter.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	items := make([]model.UserListItem, 0, len(names))
	for i, name := range names {
		if vals[i] == nil {
			// 索引与记录短暂不一致时仍给出占位条目
			items = append(items, model.UserListItem{Username: name, Role: model.RoleUser})
			continue
		}
		var u model.User
		if err := json.Unmarshal([]byte(*vals[i]), &u); err != nil {
			return nil, fmt.Errorf("用户记录损坏（%s）: %w", name, err)
		}
		items = append(items, model.UserListItem{
			Username:  u.Username,
			Role:      u.Role,
			Banned:    u.Banned,
			CreatedAt: u.CreatedAt,
		})
	}
	return items, nil
}

// GetUserByOidcSub 联合登录：按外部身份 sub 反查用户
func (s *KVStorage) GetUserByOidcSub(ctx context.Context, sub string) (*model.User, error) {
	username, err := s.adapter.Get(ctx, oidcSubKey(sub))
	if errors.Is(err, adapter.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, username)
}

// BindOidcSub 绑定外部身份；sub 全局唯一
func (s *KVStorage) BindOidcSub(ctx context.Context, username, sub string) error {
	bound, err := s.adapter.Get(ctx, oidcSubKey(sub))
	if err != nil && !errors.Is(err, adapter.ErrNil) {
		return err
	}
	if err == nil && bound != username {
		return ErrOidcSubBound
	}

	u, err := s.getUserDirect(ctx, username)
	if err != nil {
		return err
	}
	// 换绑时旧 sub 的反查索引必须一并清掉，否则旧身份仍可解析到该用户
	if u.OidcSub != "" && u.OidcSub != sub {
		if err := s.adapter.Del(ctx, oidcSubKey(u.OidcSub)); err != nil {
			return err
		}
	}
	u.OidcSub = sub
	if err := s.writeUser(ctx, u); err != nil {
		return err
	}
	return s.adapter.Set(ctx, oidcSubKey(sub), username)
}
