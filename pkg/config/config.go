package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
	Notify        NotifyConfig
	Log           LogConfig
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "text" or "json".
	Format string
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
	// MaxUploadBytes bounds a single multipart upload request.
	MaxUploadBytes int64
	// MaxBatchFiles bounds how many PDFs one batch may contain.
	MaxBatchFiles int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type AuthConfig struct {
	// PasswordHash is the bcrypt hash of the shared operator password.
	// Empty disables login entirely, for local use.
	PasswordHash string
	// SessionKey signs the session cookie.
	SessionKey string
	// DownloadSecret signs short-lived export download links.
	DownloadSecret string
	// DownloadTTL is how long a signed download link stays valid.
	DownloadTTL time.Duration
}

type StorageConfig struct {
	// UploadDir holds uploaded PDFs and generated exports.
	UploadDir string
	// RetentionDays is how long uploads are kept before the cleanup
	// job removes them. Zero disables cleanup.
	RetentionDays int
	// CleanupSchedule is a cron expression for the retention job.
	CleanupSchedule string
	// IndexDir holds the bleve search index for archived batches.
	IndexDir string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	TracingEnabled bool
}

type NotifyConfig struct {
	// ResendAPIKey enables batch-completion emails when set.
	ResendAPIKey string
	FromAddress  string
	ToAddress    string
}

// Load reads configuration from environment variables. A .env file in
// the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 20),
			MaxUploadBytes:     getEnvAsInt64("MAX_UPLOAD_BYTES", 50<<20),
			MaxBatchFiles:      getEnvAsInt("MAX_BATCH_FILES", 100),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "invoice2sap"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			PasswordHash:   getEnv("AUTH_PASSWORD_HASH", ""),
			SessionKey:     getEnv("SESSION_KEY", ""),
			DownloadSecret: getEnv("DOWNLOAD_SECRET", ""),
			DownloadTTL:    getEnvAsDuration("DOWNLOAD_TTL", 15*time.Minute),
		},
		Storage: StorageConfig{
			UploadDir:       getEnv("UPLOAD_DIR", "./data/uploads"),
			RetentionDays:   getEnvAsInt("UPLOAD_RETENTION_DAYS", 30),
			CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 3 * * *"),
			IndexDir:        getEnv("INDEX_DIR", "./data/index"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			TracingEnabled: getEnvAsBool("TRACING_ENABLED", false),
		},
		Notify: NotifyConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromAddress:  getEnv("NOTIFY_FROM", ""),
			ToAddress:    getEnv("NOTIFY_TO", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.Auth.PasswordHash != "" && cfg.Auth.SessionKey == "" {
		return nil, errors.New("SESSION_KEY is required when AUTH_PASSWORD_HASH is set")
	}
	if cfg.Notify.ResendAPIKey != "" && cfg.Notify.ToAddress == "" {
		return nil, errors.New("NOTIFY_TO is required when RESEND_API_KEY is set")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns the host:port the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
