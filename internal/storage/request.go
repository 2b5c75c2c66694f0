package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/user/lunatv/internal/adapter"
	"github.com/user/lunatv/internal/model"
)

// AddMovieRequest 新建求片或合并重复请求
// 同一 id 已存在时追加请求人并累加计数，不重复建档
func (s *KVStorage) AddMovieRequest(ctx context.Context, req *model.MovieRequest, requester string) (*model.MovieRequest, error) {
	if req.ID == "" {
		req.ID = requestID(req)
	}

	now := time.Now().UnixMilli()
	existing, err := s.GetMovieRequest(ctx, req.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		req.Requesters = []string{requester}
		req.RequestCount = 1
		req.Status = model.RequestPending
		req.CreatedAt = now
		req.UpdatedAt = now
	case err != nil:
		return nil, err
	default:
		merged := false
		for _, r := range existing.Requesters {
			if r == requester {
				merged = true
				break
			}
		}
		if !merged {
			existing.Requesters = append(existing.Requesters, requester)
		}
		existing.RequestCount++
		existing.UpdatedAt = now
		req = existing
	}

	if err := s.writeMovieRequest(ctx, req); err != nil {
		return nil, err
	}
	if err := s.adapter.SAdd(ctx, userRequestsKey(requester), req.ID); err != nil {
		return nil, err
	}
	return req, nil
}

// requestID 没有显式 id 时按目录信息推导
func requestID(req *model.MovieRequest) string {
	if req.TmdbID != "" {
		id := req.MediaType + ":" + req.TmdbID
		if req.Season > 0 {
			id += ":s" + strconv.Itoa(req.Season)
		}
		return id
	}
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

func (s *KVStorage) writeMovieRequest(ctx context.Context, req *model.MovieRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return s.adapter.HSet(ctx, requestsKey, map[string]string{req.ID: string(raw)})
}

// GetMovieRequest 按 id 读取求片
func (s *KVStorage) GetMovieRequest(ctx context.Context, id string) (*model.MovieRequest, error) {
	raw, err := s.adapter.HGet(ctx, requestsKey, id)
	if errors.Is(err, adapter.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var req model.MovieRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, fmt.Errorf("求片记录损坏（%s）: %w", id, err)
	}
	return &req, nil
}

// GetAllMovieRequests 全部求片，按创建时间倒序
func (s *KVStorage) GetAllMovieRequests(ctx context.Context) ([]*model.MovieRequest, error) {
	raw, err := s.adapter.HGetAll(ctx, requestsKey)
	if err != nil {
		return nil, err
	}

	out := make([]*model.MovieRequest, 0, len(raw))
	for id, v := range raw {
		var req model.MovieRequest
		if err := json.Unmarshal([]byte(v), &req); err != nil {
			return nil, fmt.Errorf("求片记录损坏（%s）: %w", id, err)
		}
		out = append(out, &req)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

// FulfillMovieRequest 标记求片已满足
func (s *KVStorage) FulfillMovieRequest(ctx context.Context, id, source string) error {
	req, err := s.GetMovieRequest(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	req.Status = model.RequestFulfilled
	req.FulfilledAt = now
	req.FulfilledBy = source
	req.UpdatedAt = now
	return s.writeMovieRequest(ctx, req)
}

// DeleteMovieRequest 删除求片；不存在时返回 ErrNotFound，不静默吞掉
func (s *KVStorage) DeleteMovieRequest(ctx context.Context, id string) error {
	req, err := s.GetMovieRequest(ctx, id)
	if err != nil {
		return err
	}

	// 先摘掉各请求人的索引，再删主记录
	for _, r := range req.Requesters {
		if err := s.adapter.SRem(ctx, userRequestsKey(r), id); err != nil {
			return err
		}
	}
	return s.adapter.HDel(ctx, requestsKey, id)
}

// GetUserMovieRequests 某用户触达过的全部求片
func (s *KVStorage) GetUserMovieRequests(ctx context.Context, username string) ([]*model.MovieRequest, error) {
	ids, err := s.adapter.SMembers(ctx, userRequestsKey(username))
	if err != nil {
		return nil, err
	}

	out := make([]*model.MovieRequest, 0, len(ids))
	for _, id := range ids {
		req, err := s.GetMovieRequest(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// 主记录已删但索引残留，跳过
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}
