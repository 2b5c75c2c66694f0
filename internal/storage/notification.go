package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/user/lunatv/internal/model"
)

// maxNotifications 每用户通知上限，溢出时丢弃最旧的
const maxNotifications = 50

// AddNotification 追加通知（列表头部，新消息在前）
func (s *KVStorage) AddNotification(ctx context.Context, username string, n *model.Notification) error {
	if n.ID == "" {
		n.ID = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	if n.Timestamp == 0 {
		n.Timestamp = time.Now().UnixMilli()
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}

	key := notificationsKey(username)
	if err := s.adapter.LPush(ctx, key, string(raw)); err != nil {
		return err
	}
	// 超限截断，保留最新的 maxNotifications 条
	return s.adapter.LTrim(ctx, key, 0, maxNotifications-1)
}

// GetNotifications 读取通知，limit <= 0 表示全部
func (s *KVStorage) GetNotifications(ctx context.Context, username string, limit int) ([]*model.Notification, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := s.adapter.LRange(ctx, notificationsKey(username), 0, stop)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Notification, 0, len(raw))
	for _, v := range raw {
		var n model.Notification
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			return nil, fmt.Errorf("通知记录损坏（%s）: %w", username, err)
		}
		out = append(out, &n)
	}
	return out, nil
}

// MarkNotificationsRead 标记已读；不传 id 则全部标记
func (s *KVStorage) MarkNotificationsRead(ctx context.Context, username string, ids ...string) error {
	notifications, err := s.GetNotifications(ctx, username, 0)
	if err != nil {
		return err
	}
	if len(notifications) == 0 {
		return nil
	}

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	// 逐条原地改写，下标相对尾部取负值：
	// 新通知从头部入队，负下标定位不受并发追加影响，期间进来的消息不会丢
	key := notificationsKey(username)
	total := len(notifications)
	for i, n := range notifications {
		if (len(ids) != 0 && !idSet[n.ID]) || n.Read {
			continue
		}
		n.Read = true
		raw, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err := s.adapter.LSet(ctx, key, int64(i-total), string(raw)); err != nil {
			return err
		}
	}
	return nil
}

// ClearNotifications 清空通知
func (s *KVStorage) ClearNotifications(ctx context.Context, username string) error {
	return s.adapter.Del(ctx, notificationsKey(username))
}
