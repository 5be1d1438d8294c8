package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config clinic-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Line      LineConfig
	Broadcast BroadcastConfig
}

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 构建 lib/pq DSN
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LineConfig LINE Messaging API 配置
type LineConfig struct {
	APIBaseURL   string // LINE API 地址（测试时可指向 mock server）
	ChannelToken string // Channel access token
}

// BroadcastConfig 广播发送配置
type BroadcastConfig struct {
	BatchSize           int    // 每批并发推送数
	ReservationFallback string // {next_reservation} 无预约时的替换文案
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, clinic-data will
	// fall back to in-memory repositories so admin pages still respond.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "clinicdb")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// LINE 配置
	cfg.Line.APIBaseURL = getEnv("LINE_API_BASE_URL", "https://api.line.me")
	cfg.Line.ChannelToken = getEnv("LINE_CHANNEL_TOKEN", "")

	// 广播配置
	cfg.Broadcast.BatchSize = parseInt(getEnv("BROADCAST_BATCH_SIZE", "10"), 10)
	cfg.Broadcast.ReservationFallback = getEnv("BROADCAST_RESERVATION_FALLBACK", "未定")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
