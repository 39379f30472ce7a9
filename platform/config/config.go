// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int32
	GetDatabaseMinConns() int32
	GetDatabaseMaxConnLifetime() time.Duration
}

// JWTConfig provides JWT validation settings for middleware and realtime auth.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitPerSecond() float64
	GetRateLimitBurst() int
}

// SchedulerConfig provides Redis and asynq settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketDesignAssets() string
	IsMinIOEnabled() bool
}

// EmailConfig provides SMTP settings for notification emails.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// IdempotencyConfig provides settings for the idempotency guard.
type IdempotencyConfig interface {
	GetIdempotencyTTL() time.Duration
	GetIdempotencyLockTTL() time.Duration
	GetIdempotencyWaitTimeout() time.Duration
	GetIdempotencySweepSpec() string
}

// RealtimeConfig provides settings for websocket sessions.
type RealtimeConfig interface {
	GetRealtimeHeartbeatInterval() time.Duration
	GetRealtimeIdleTimeout() time.Duration
	GetRealtimeAuthTimeout() time.Duration
	GetRealtimeSendBuffer() int
	GetRealtimeChannel() string
	GetCORSOrigins() []string
	GetCORSAllowAll() bool
}

// PhoneConfig provides the default region used to parse local phone numbers.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	DatabaseMaxConns          int32
	DatabaseMinConns          int32
	DatabaseMaxConnLifetime   time.Duration
	JWTAccessSecret           string
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	RateLimitPerSecond        float64
	RateLimitBurst            int
	AppBaseURL                string
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinIOMaxFileSize          int64
	MinioBucketDesignAssets   string
	EmailEnabled              bool
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	EmailFromName             string
	EmailFromAddress          string
	IdempotencyTTL            time.Duration
	IdempotencyLockTTL        time.Duration
	IdempotencyWaitTimeout    time.Duration
	IdempotencySweepSpec      string
	RealtimeHeartbeatInterval time.Duration
	RealtimeIdleTimeout       time.Duration
	RealtimeAuthTimeout       time.Duration
	RealtimeSendBuffer        int
	RealtimeChannel           string
	PhoneDefaultRegion        string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string                    { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int32                { return c.DatabaseMaxConns }
func (c *Config) GetDatabaseMinConns() int32                { return c.DatabaseMinConns }
func (c *Config) GetDatabaseMaxConnLifetime() time.Duration { return c.DatabaseMaxConnLifetime }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string             { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool           { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string        { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool         { return c.CORSAllowCreds }
func (c *Config) GetRateLimitPerSecond() float64  { return c.RateLimitPerSecond }
func (c *Config) GetRateLimitBurst() int          { return c.RateLimitBurst }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string           { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string          { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string          { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool               { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64         { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketDesignAssets() string { return c.MinioBucketDesignAssets }
func (c *Config) IsMinIOEnabled() bool               { return c.MinIOEndpoint != "" }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// IdempotencyConfig implementation
func (c *Config) GetIdempotencyTTL() time.Duration         { return c.IdempotencyTTL }
func (c *Config) GetIdempotencyLockTTL() time.Duration     { return c.IdempotencyLockTTL }
func (c *Config) GetIdempotencyWaitTimeout() time.Duration { return c.IdempotencyWaitTimeout }
func (c *Config) GetIdempotencySweepSpec() string          { return c.IdempotencySweepSpec }

// RealtimeConfig implementation
func (c *Config) GetRealtimeHeartbeatInterval() time.Duration { return c.RealtimeHeartbeatInterval }
func (c *Config) GetRealtimeIdleTimeout() time.Duration       { return c.RealtimeIdleTimeout }
func (c *Config) GetRealtimeAuthTimeout() time.Duration       { return c.RealtimeAuthTimeout }
func (c *Config) GetRealtimeSendBuffer() int                  { return c.RealtimeSendBuffer }
func (c *Config) GetRealtimeChannel() string                  { return c.RealtimeChannel }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// =============================================================================
// Loader
// =============================================================================

// Load reads configuration from the environment, honoring a local .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:          int32(mustInt(getEnv("DB_MAX_CONNS", "25"))),
		DatabaseMinConns:          int32(mustInt(getEnv("DB_MIN_CONNS", "5"))),
		DatabaseMaxConnLifetime:   mustDuration(getEnv("DB_MAX_CONN_LIFETIME", "1h")),
		JWTAccessSecret:           getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitPerSecond:        mustFloat(getEnv("RATE_LIMIT_PER_SECOND", "20")),
		RateLimitBurst:            mustInt(getEnv("RATE_LIMIT_BURST", "40")),
		AppBaseURL:                getEnv("APP_BASE_URL", "http://localhost:4200"),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:          mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:          mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "104857600")),
		MinioBucketDesignAssets:   getEnv("MINIO_BUCKET_DESIGN_ASSETS", "design-assets"),
		EmailEnabled:              emailEnabled && smtpHost != "",
		SMTPHost:                  smtpHost,
		SMTPPort:                  mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:              getEnv("SMTP_USERNAME", ""),
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "Production Desk"),
		EmailFromAddress:          getEnv("EMAIL_FROM_ADDRESS", ""),
		IdempotencyTTL:            mustDuration(getEnv("IDEMPOTENCY_TTL", "24h")),
		IdempotencyLockTTL:        mustDuration(getEnv("IDEMPOTENCY_LOCK_TTL", "30s")),
		IdempotencyWaitTimeout:    mustDuration(getEnv("IDEMPOTENCY_WAIT_TIMEOUT", "5s")),
		IdempotencySweepSpec:      getEnv("IDEMPOTENCY_SWEEP_SPEC", "@every 15m"),
		RealtimeHeartbeatInterval: mustDuration(getEnv("REALTIME_HEARTBEAT_INTERVAL", "25s")),
		RealtimeIdleTimeout:       mustDuration(getEnv("REALTIME_IDLE_TIMEOUT", "60s")),
		RealtimeAuthTimeout:       mustDuration(getEnv("REALTIME_AUTH_TIMEOUT", "10s")),
		RealtimeSendBuffer:        mustInt(getEnv("REALTIME_SEND_BUFFER", "64")),
		RealtimeChannel:           getEnv("REALTIME_CHANNEL", "production:realtime"),
		PhoneDefaultRegion:        getEnv("PHONE_DEFAULT_REGION", "NL"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DatabaseMinConns > cfg.DatabaseMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if emailEnabled && smtpHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_ENABLED is true")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.IdempotencyTTL <= 0 {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL must be a positive duration")
	}
	if cfg.RealtimeHeartbeatInterval <= 0 || cfg.RealtimeIdleTimeout <= cfg.RealtimeHeartbeatInterval {
		return nil, fmt.Errorf("REALTIME_IDLE_TIMEOUT must exceed REALTIME_HEARTBEAT_INTERVAL")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
