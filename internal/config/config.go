package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort          string
	DatabaseURL       string
	DBPoolSize        int
	RedisURL          string
	RedisPoolSize     int
	CacheTTL          int // seconds
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaPartitions   int
	KafkaGroupID      string
	JWTSecret         string
	AllowedOrigins    []string
	LogLevel          string
	SummaryMaxDays    int
	RequestTimeoutSec int
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once from env).
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = Load()
	})
	return cfg
}

// Load reads a fresh Config from the environment. Most callers want Get.
func Load() *Config {
	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBPoolSize:        getIntEnv("DB_POOL_SIZE", 20),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPoolSize:     getIntEnv("REDIS_POOL_SIZE", 50),
		CacheTTL:          getIntEnv("CACHE_TTL_SEC", 300),
		KafkaBrokers:      getSliceEnv("KAFKA_BROKERS"),
		KafkaTopic:        getEnv("KAFKA_CHECKLIST_TOPIC", "checklist-commands"),
		KafkaPartitions:   getIntEnv("KAFKA_PARTITIONS", 4),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "checklist-workers"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AllowedOrigins:    getSliceEnvDefault("ALLOWED_ORIGINS", "*"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		SummaryMaxDays:    getIntEnv("SUMMARY_MAX_DAYS", 366),
		RequestTimeoutSec: getIntEnv("REQUEST_TIMEOUT_SEC", 15),
	}
}

// GetJWTSecret returns JWT secret from config (for middleware that only has context).
func GetJWTSecret(ctx context.Context) string {
	return Get().JWTSecret
}

// QueueEnabled reports whether checklist commands go through Kafka.
func (c *Config) QueueEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// getSliceEnv splits a comma-separated variable; unset or blank yields nil.
func getSliceEnv(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getSliceEnvDefault(key, defaultVal string) []string {
	if out := getSliceEnv(key); len(out) > 0 {
		return out
	}
	return []string{defaultVal}
}
