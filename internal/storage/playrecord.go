package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/user/lunatv/internal/adapter"
	"github.com/user/lunatv/internal/model"
)

// GetPlayRecord 读取单条播放记录
func (s *KVStorage) GetPlayRecord(ctx context.Context, username, source, id string) (*model.PlayRecord, error) {
	raw, err := s.adapter.HGet(ctx, playRecordsKey(username), compositeKey(source, id))
	if errors.Is(err, adapter.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec model.PlayRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("播放记录损坏（%s/%s+%s）: %w", username, source, id, err)
	}
	return &rec, nil
}

// SetPlayRecord 写入播放进度检查点
// 超过软阈值时异步触发清理，不阻塞本次写入
func (s *KVStorage) SetPlayRecord(ctx context.Context, username, source, id string, record *model.PlayRecord) error {
	if record.SaveTime == 0 {
		record.SaveTime = time.Now().UnixMilli()
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	field := compositeKey(source, id)
	if err := s.adapter.HSet(ctx, playRecordsKey(username), map[string]string{field: string(raw)}); err != nil {
		return err
	}

	if s.asyncCleanup {
		go func() {
			cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.CleanupOldPlayRecords(cctx, username); err != nil {
				logrus.WithField("user", username).Warnf("播放记录清理失败: %v", err)
			}
		}()
	}
	return nil
}

// GetAllPlayRecords 读取用户全部播放记录（组合键 → 记录）
func (s *KVStorage) GetAllPlayRecords(ctx context.Context, username string) (map[string]*model.PlayRecord, error) {
	raw, err := s.adapter.HGetAll(ctx, playRecordsKey(username))
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.PlayRecord, len(raw))
	for field, v := range raw {
		var rec model.PlayRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("播放记录损坏（%s/%s）: %w", username, field, err)
		}
		out[field] = &rec
	}
	return out, nil
}

// DeletePlayRecord 删除单条播放记录
func (s *KVStorage) DeletePlayRecord(ctx context.Context, username, source, id string) error {
	return s.adapter.HDel(ctx, playRecordsKey(username), compositeKey(source, id))
}

// CleanupOldPlayRecords 软阈值清理
//
// 只有数量超过 上限+余量 才触发（防抖，避免每次写入都清理），
// 触发后按 save_time 删除最旧的记录，降到恰好等于上限。
// 与迁移共用同一把用户锁，二者不会交错执行。
func (s *KVStorage) CleanupOldPlayRecords(ctx context.Context, username string) error {
	return s.locks.Do(username+":"+playRecordMigration.name, func() error {
		return s.doCleanupOldPlayRecords(ctx, username)
	})
}

func (s *KVStorage) doCleanupOldPlayRecords(ctx context.Context, username string) error {
	records, err := s.GetAllPlayRecords(ctx, username)
	if err != nil {
		return err
	}

	max := s.cfg.MaxPlayRecords
	if len(records) <= max+s.cfg.PlayRecordSlack {
		return nil
	}

	type entry struct {
		field    string
		saveTime int64
	}
	entries := make([]entry, 0, len(records))
	for field, rec := range records {
		entries = append(entries, entry{field: field, saveTime: rec.SaveTime})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].saveTime < entries[j].saveTime
	})

	drop := make([]string, 0, len(entries)-max)
	for _, e := range entries[:len(entries)-max] {
		drop = append(drop, e.field)
	}
	if err := s.adapter.HDel(ctx, playRecordsKey(username), drop...); err != nil {
		return err
	}

	logrus.WithField("user", username).Infof("已清理 %d 条最旧播放记录，保留 %d 条", len(drop), max)
	return nil
}
