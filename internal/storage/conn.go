package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// 连接参数
const (
	dialTimeout       = 10 * time.Second // 建连超时
	initialRetryDelay = 3 * time.Second  // 首连失败的固定重试间隔
	initialRetryMax   = 5
	keepAliveInterval = 30 * time.Second
)

// ConnManager 连接生命周期管理器
//
// 每种后端进程内只有一个连接对象，在组合根构造一次后向下传递
// （显式依赖注入，不依赖进程级全局注册表）。
// 连接惰性创建：地址缺失属于配置错误，在首次取用时报告。
type ConnManager struct {
	name string // 展示名（日志用）
	url  string

	mu       sync.Mutex
	client   *redis.Client
	stopPing chan struct{}
}

// NewConnManager 创建连接管理器（不建连）
func NewConnManager(name, url string) *ConnManager {
	return &ConnManager{name: name, url: url}
}

// Client 返回进程内唯一的连接，首次调用时惰性创建
func (m *ConnManager) Client(ctx context.Context) (*redis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	if m.url == "" {
		return nil, fmt.Errorf("%s: 缺少连接地址，请检查对应的环境变量", m.name)
	}
	opts, err := redis.ParseURL(m.url)
	if err != nil {
		return nil, fmt.Errorf("%s: 连接地址无效: %w", m.name, err)
	}

	opts.DialTimeout = dialTimeout
	// 命令级重试统一由上层重试包装器负责，客户端自带的重试关掉，
	// 避免两层退避叠加把一次操作放大成几十次网络往返
	opts.MaxRetries = -1

	client := redis.NewClient(opts)

	// 首连失败走固定间隔重试，与稳态退避策略相互独立
	if err := m.waitForReady(ctx, client); err != nil {
		client.Close()
		return nil, err
	}

	m.client = client
	m.stopPing = make(chan struct{})
	go m.keepAlive(client, m.stopPing)

	logrus.WithField("backend", m.name).Info("存储后端已连接")
	return m.client, nil
}

// waitForReady 首连固定间隔重试
func (m *ConnManager) waitForReady(ctx context.Context, client *redis.Client) error {
	var lastErr error
	for i := 0; i < initialRetryMax; i++ {
		if err := client.Ping(ctx).Err(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		logrus.WithField("backend", m.name).Warnf("首次连接失败（第 %d 次）: %v", i+1, lastErr)

		select {
		case <-time.After(initialRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: 首次连接失败: %w", m.name, lastErr)
}

// keepAlive 周期性 ping 保活
func (m *ConnManager) keepAlive(client *redis.Client, stop chan struct{}) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := client.Ping(ctx).Err(); err != nil {
				logrus.WithField("backend", m.name).Warnf("保活 ping 失败: %v", err)
			}
			cancel()
		case <-stop:
			return
		}
	}
}

// Reset 在连接报告自身已关闭时丢弃它，下次取用时重建
func (m *ConnManager) Reset(err error) {
	if err == nil || !strings.Contains(err.Error(), "client is closed") {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return
	}
	logrus.WithField("backend", m.name).Warn("连接已关闭，将在下次操作时重建")
	close(m.stopPing)
	m.client.Close()
	m.client = nil
}

// Close 关闭连接并停止保活
func (m *ConnManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	close(m.stopPing)
	err := m.client.Close()
	m.client = nil
	return err
}
