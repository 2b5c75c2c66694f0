package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/user/lunatv/internal/storage"
)

// CleanupService 清理服务
// 周期性巡检所有用户，裁剪超出上限的播放记录集合
type CleanupService struct {
	store storage.Storage
}

// NewCleanupService 创建清理服务
func NewCleanupService(store storage.Storage) *CleanupService {
	return &CleanupService{store: store}
}

// Start 启动定时清理任务
func (s *CleanupService) Start() {
	ticker := time.NewTicker(24 * time.Hour)

	// 启动时先运行一次
	go s.runCleanup()

	go func() {
		for range ticker.C {
			s.runCleanup()
		}
	}()
}

func (s *CleanupService) runCleanup() {
	logrus.Info("[CleanupService] 开始巡检播放记录...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	usernames, err := s.store.GetAllUsers(ctx)
	if err != nil {
		logrus.Errorf("[CleanupService] 获取用户列表失败: %v", err)
		return
	}

	cleaned := 0
	for _, name := range usernames {
		if err := s.store.CleanupOldPlayRecords(ctx, name); err != nil {
			logrus.Errorf("[CleanupService] 清理用户 %s 播放记录失败: %v", name, err)
			continue
		}
		cleaned++
	}
	logrus.Infof("[CleanupService] 巡检完成，处理 %d/%d 个用户", cleaned, len(usernames))
}
