package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/user/lunatv/internal/adapter"
	"github.com/user/lunatv/internal/model"
)

// GetFavorite 读取单条收藏
func (s *KVStorage) GetFavorite(ctx context.Context, username, source, id string) (*model.Favorite, error) {
	raw, err := s.adapter.HGet(ctx, favoritesKey(username), compositeKey(source, id))
	if errors.Is(err, adapter.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var fav model.Favorite
	if err := json.Unmarshal([]byte(raw), &fav); err != nil {
		return nil, fmt.Errorf("收藏记录损坏（%s/%s+%s）: %w", username, source, id, err)
	}
	return &fav, nil
}

// SetFavorite 添加或更新收藏（收藏无数量上限）
func (s *KVStorage) SetFavorite(ctx context.Context, username, source, id string, fav *model.Favorite) error {
	if fav.SaveTime == 0 {
		fav.SaveTime = time.Now().UnixMilli()
	}
	raw, err := json.Marshal(fav)
	if err != nil {
		return err
	}
	return s.adapter.HSet(ctx, favoritesKey(username), map[string]string{
		compositeKey(source, id): string(raw),
	})
}

// GetAllFavorites 读取用户全部收藏（组合键 → 收藏）
func (s *KVStorage) GetAllFavorites(ctx context.Context, username string) (map[string]*model.Favorite, error) {
	raw, err := s.adapter.HGetAll(ctx, favoritesKey(username))
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.Favorite, len(raw))
	for field, v := range raw {
		var fav model.Favorite
		if err := json.Unmarshal([]byte(v), &fav); err != nil {
			return nil, fmt.Errorf("收藏记录损坏（%s/%s）: %w", username, field, err)
		}
		out[field] = &fav
	}
	return out, nil
}

// DeleteFavorite 取消收藏
func (s *KVStorage) DeleteFavorite(ctx context.Context, username, source, id string) error {
	return s.adapter.HDel(ctx, favoritesKey(username), compositeKey(source, id))
}
