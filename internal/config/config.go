package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds application configuration from environment.
type Config struct {
	AppEnv      string
	HTTPPort    string
	LogLevel    string
	DatabaseURL string
	DBPoolSize  int

	CacheBackend  string
	CacheTTL      int // seconds
	CacheCapacity int
	RedisURL      string
	RedisPoolSize int

	JWTSecret  string
	JWTExpiry  time.Duration
	JWTIssuer  string
	BcryptCost int

	KafkaBrokers    []string
	KafkaTopic      string
	KafkaPartitions int
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

// Load reads a fresh Config from the environment.
func Load() *Config {
	return &Config{
		AppEnv:          getEnv("APP_ENV", "production"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBPoolSize:      getIntEnv("DB_POOL_SIZE", 20),
		CacheBackend:    strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		CacheTTL:        getIntEnv("CACHE_TTL_SEC", 300),
		CacheCapacity:   getIntEnv("CACHE_CAPACITY", 10000),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPoolSize:   getIntEnv("REDIS_POOL_SIZE", 50),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTExpiry:       getDurationEnv("JWT_EXPIRY", time.Hour),
		JWTIssuer:       getEnv("JWT_ISSUER", "todo-api"),
		BcryptCost:      getIntEnv("BCRYPT_COST", 10),
		KafkaBrokers:    getSliceEnv("KAFKA_BROKERS"),
		KafkaTopic:      getEnv("KAFKA_TODO_TOPIC", "todo-events"),
		KafkaPartitions: getIntEnv("KAFKA_PARTITIONS", 3),
	}
}

// Development reports whether the app runs with development defaults.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Validate collects every configuration problem into a single error.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		if !c.Development() {
			errs = append(errs, errors.New("JWT_SECRET is required"))
		} else {
			c.JWTSecret = "development-secret"
		}
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, fmt.Errorf("JWT_EXPIRY must be positive, got %s", c.JWTExpiry))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL_SEC must be positive, got %d", c.CacheTTL))
	}
	if c.CacheBackend != CacheBackendRedis && c.CacheBackend != CacheBackendMemory {
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendRedis, CacheBackendMemory, c.CacheBackend))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	return errors.Join(errs...)
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

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getSliceEnv splits a comma separated variable. Unset means nil.
func getSliceEnv(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
