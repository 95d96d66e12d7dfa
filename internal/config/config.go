// Package config binds process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend selectors
const (
	BackendRedis     = "redis"
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Config holds everything the process reads from the environment
type Config struct {
	// Telegram
	TelegramBotToken string
	WebhookSecret    string
	WebhookPath      string
	WebhookURL       string // public base URL; when set, WebhookPath is appended and registered at boot

	// HTTP listeners
	ListenAddr string
	AdminAddr  string // empty disables the metrics/healthz listener

	// Model provider
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	MaxOutputTokens int

	// Pipeline tunables
	DailyMessageLimit int
	BackoffCooldown   time.Duration

	// Voice replies
	VoiceReplies bool
	VoiceModel   string
	VoiceName    string

	// Storage
	StorageBackend     string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	DatabaseURL        string
	FirestoreProjectID string

	// Logging
	LogLevel      string
	LogFormat     string // "console" or "json"
	LogFile       string // empty disables file output
	LogMaxSize    int    // MB per file before rotation
	LogMaxBackups int
	LogMaxAge     int // days
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookSecret:    getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		WebhookPath:      getEnv("WEBHOOK_PATH", "/webhook"),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		AdminAddr:  getEnv("ADMIN_ADDR", ""),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-5-codex"),
		MaxOutputTokens: getEnvAsInt("MAX_OUTPUT_TOKENS", 1024),

		DailyMessageLimit: getEnvAsInt("DAILY_MESSAGE_LIMIT", 50),
		BackoffCooldown:   getEnvAsDuration("BACKOFF_COOLDOWN", 30*time.Minute),

		VoiceReplies: getEnvAsBool("VOICE_REPLIES", false),
		VoiceModel:   getEnv("VOICE_MODEL", "gpt-4o-mini-tts"),
		VoiceName:    getEnv("VOICE_NAME", "alloy"),

		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", BackendRedis)),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		FirestoreProjectID: getEnv("FIRESTORE_PROJECT_ID", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 10),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
	}
}

// Validate checks that required settings are present and consistent
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if !strings.HasPrefix(c.WebhookPath, "/") || c.WebhookPath == "/" {
		return fmt.Errorf("WEBHOOK_PATH must start with / and not be the root")
	}

	switch c.StorageBackend {
	case BackendRedis, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	return nil
}

// getEnv returns the variable's value, or the default when unset or empty
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the variable parsed as an integer
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool returns the variable parsed as a boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration returns the variable parsed as a Go duration string
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
