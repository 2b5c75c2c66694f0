package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/user/lunatv/internal/config"
	"github.com/user/lunatv/internal/service"
	"github.com/user/lunatv/internal/storage"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		logrus.Info("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("配置加载失败: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// 初始化存储（组合根构造一次，向下传递）
	store, err := storage.New(cfg)
	if err != nil {
		logrus.Fatalf("存储初始化失败: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Ping(ctx); err != nil {
		cancel()
		logrus.Fatalf("存储后端连接失败: %v", err)
	}
	cancel()
	logrus.Infof("存储后端就绪: %s", cfg.StorageType)

	// 站长账号定义在配置里，有密码时确保其存储记录存在
	if cfg.OwnerPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := store.CreateUser(ctx, cfg.OwnerUsername, cfg.OwnerPassword)
		cancel()
		if err != nil && !errors.Is(err, storage.ErrUserExists) {
			logrus.Fatalf("站长账号初始化失败: %v", err)
		}
	}

	// 启动定时清理任务
	cleanupSvc := service.NewCleanupService(store)
	cleanupSvc.Start()

	// 等待中断信号以优雅地退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("正在关闭...")

	if err := store.Close(); err != nil {
		logrus.Errorf("存储关闭失败: %v", err)
	}
	logrus.Info("已退出")
}
