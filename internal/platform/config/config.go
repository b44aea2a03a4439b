package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                 string
	Environment          string
	LogLevel             string
	DatabaseURL          string
	RunMigrations        bool
	DeviceAPIURL         string
	DeviceID             string
	DevicesFile          string
	DeviceAPITimeout     time.Duration
	DeviceTimezone       string
	SyncInterval         time.Duration
	EmployeeSyncInterval time.Duration
	SyncMaxAttempts      int
	SyncRetryDelay       time.Duration
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	MetricsEnabled       bool
	CORSOrigins          []string
	DefaultPageSize      int
	MaxPageSize          int
}

func Load() Config {
	return Config{
		Addr:                 getEnv("APP_ADDR", ":3000"),
		Environment:          getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		DeviceAPIURL:         getEnv("DEVICE_API_URL", "http://localhost:5000"),
		DeviceID:             getEnv("DEVICE_ID", ""),
		DevicesFile:          getEnv("DEVICES_FILE", ""),
		DeviceAPITimeout:     getEnvDuration("DEVICE_API_TIMEOUT", 15*time.Second),
		DeviceTimezone:       getEnv("DEVICE_TIMEZONE", "UTC"),
		SyncInterval:         getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		EmployeeSyncInterval: getEnvDuration("EMPLOYEE_SYNC_INTERVAL", time.Hour),
		SyncMaxAttempts:      getEnvInt("SYNC_MAX_ATTEMPTS", 3),
		SyncRetryDelay:       getEnvDuration("SYNC_RETRY_DELAY", 2*time.Second),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 1000),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		CORSOrigins:          getEnvList("CORS_ORIGINS", []string{"http://localhost:3003"}),
		DefaultPageSize:      getEnvInt("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:          getEnvInt("MAX_PAGE_SIZE", 100),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	parsed, err := url.Parse(c.DeviceAPIURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("DEVICE_API_URL must be an absolute http(s) url")
	}
	if _, err := c.DeviceLocation(); err != nil {
		return fmt.Errorf("DEVICE_TIMEZONE is not a known time zone: %w", err)
	}
	if c.SyncMaxAttempts < 1 {
		return fmt.Errorf("SYNC_MAX_ATTEMPTS must be at least 1")
	}
	if c.SyncRetryDelay < 0 {
		return fmt.Errorf("SYNC_RETRY_DELAY must not be negative")
	}
	if c.SyncInterval < 0 || c.EmployeeSyncInterval < 0 {
		return fmt.Errorf("sync intervals must not be negative")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.DefaultPageSize < 1 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive and not exceed MAX_PAGE_SIZE")
	}
	return nil
}

// DeviceLocation is the zone used for device timestamps that carry no offset.
func (c Config) DeviceLocation() (*time.Location, error) {
	return time.LoadLocation(c.DeviceTimezone)
}
