package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// StorageType 存储后端类型（启动时解析一次，避免运行期字符串分发）
type StorageType string

const (
	StorageRedis   StorageType = "redis"
	StorageKvrocks StorageType = "kvrocks"
	StorageUpstash StorageType = "upstash"
)

// ParseStorageType 解析存储后端类型
func ParseStorageType(s string) (StorageType, error) {
	switch StorageType(s) {
	case StorageRedis, StorageKvrocks, StorageUpstash:
		return StorageType(s), nil
	}
	return "", fmt.Errorf("未知的存储后端类型: %q（可选值: redis / kvrocks / upstash）", s)
}

// Config 应用配置
type Config struct {
	Env         string
	SiteName    string
	LogLevel    string
	StorageType StorageType

	// 各后端连接地址（缺失时在首次连接时报错，而不是在构造时）
	RedisURL     string
	KvrocksURL   string
	UpstashURL   string
	UpstashToken string

	// 站长账号由环境变量定义，不一定在存储中有记录
	OwnerUsername string
	OwnerPassword string

	// 播放记录上限与防抖余量（超过 Max+Slack 才触发清理）
	MaxPlayRecords  int
	PlayRecordSlack int

	// 缓存过期时间
	UserCacheTTL  time.Duration
	OwnerCacheTTL time.Duration
}

// Load 加载配置
func Load() (*Config, error) {
	storageType, err := ParseStorageType(getEnv("STORAGE_TYPE", "redis"))
	if err != nil {
		return nil, err
	}

	maxRecords, _ := strconv.Atoi(getEnv("MAX_PLAY_RECORDS", "100"))
	slack, _ := strconv.Atoi(getEnv("PLAY_RECORD_SLACK", "10"))
	if maxRecords <= 0 {
		maxRecords = 100
	}
	if slack < 0 {
		slack = 10
	}

	return &Config{
		Env:             getEnv("APP_ENV", "development"),
		SiteName:        getEnv("SITE_NAME", "LunaTV"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		StorageType:     storageType,
		RedisURL:        os.Getenv("REDIS_URL"),
		KvrocksURL:      os.Getenv("KVROCKS_URL"),
		UpstashURL:      os.Getenv("UPSTASH_URL"),
		UpstashToken:    os.Getenv("UPSTASH_TOKEN"),
		OwnerUsername:   getEnv("OWNER_USERNAME", "admin"),
		OwnerPassword:   os.Getenv("OWNER_PASSWORD"),
		MaxPlayRecords:  maxRecords,
		PlayRecordSlack: slack,
		UserCacheTTL:    6 * time.Hour,
		OwnerCacheTTL:   10 * time.Minute,
	}, nil
}

// BackendURL 返回当前后端的连接地址
func (c *Config) BackendURL() string {
	switch c.StorageType {
	case StorageKvrocks:
		return c.KvrocksURL
	case StorageUpstash:
		return c.UpstashURL
	default:
		return c.RedisURL
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
