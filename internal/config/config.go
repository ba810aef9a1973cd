package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers
const (
	StoreDriverBolt     = "bolt"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// Notifier and badge renderer drivers
const (
	DriverLog      = "log"
	DriverAMQP     = "amqp"
	DriverTelegram = "telegram"
	DriverRedis    = "redis"
)

// Mail store drivers
const (
	MailStoreNone    = "none"
	MailStoreNotmuch = "notmuch"
)

// Config holds application configuration
type Config struct {
	StoreDriver string
	StorePath   string
	DatabaseURL string
	RedisURL    string

	ServerPort  string
	FrontendURL string
	RateLimit   string

	CheckIntervalMinutes int
	DefaultReminderTime  string
	Timezone             string

	Notifier       string
	BadgeRenderer  string
	RabbitMQURL    string
	TelegramToken  string
	TelegramChatID int64

	MailStore     string
	NotmuchBinary string
	ViewerCommand string

	TagKey   string
	TagLabel string
	TagColor string

	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		StoreDriver:          getEnv("STORE_DRIVER", StoreDriverBolt),
		StorePath:            getEnv("STORE_PATH", "./data/reminders.db"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:3000"),
		RateLimit:            getEnv("RATE_LIMIT", "20-S"),
		CheckIntervalMinutes: getEnvInt("CHECK_INTERVAL_MINUTES", 1),
		DefaultReminderTime:  getEnv("DEFAULT_REMINDER_TIME", "09:00"),
		Timezone:             getEnv("TIMEZONE", "Local"),
		Notifier:             getEnv("NOTIFIER", DriverLog),
		BadgeRenderer:        getEnv("BADGE_RENDERER", DriverLog),
		RabbitMQURL:          getEnv("RABBITMQ_URL", ""),
		TelegramToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:       getEnvInt64("TELEGRAM_CHAT_ID", 0),
		MailStore:            getEnv("MAIL_STORE", MailStoreNone),
		NotmuchBinary:        getEnv("NOTMUCH_BIN", "notmuch"),
		ViewerCommand:        getEnv("MAIL_VIEWER_CMD", ""),
		TagKey:               getEnv("REMINDER_TAG_KEY", "reminder"),
		TagLabel:             getEnv("REMINDER_TAG_LABEL", "Reminder"),
		TagColor:             getEnv("REMINDER_TAG_COLOR", "#ff9800"),
		ServerDebugMode:      getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:          getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverBolt, StoreDriverSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("STORE_PATH is required for the %s store", c.StoreDriver)
		}
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.CheckIntervalMinutes < 1 {
		return fmt.Errorf("CHECK_INTERVAL_MINUTES must be at least 1, got %d", c.CheckIntervalMinutes)
	}
	if _, _, err := ParseClock(c.DefaultReminderTime); err != nil {
		return fmt.Errorf("DEFAULT_REMINDER_TIME: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	switch c.Notifier {
	case DriverLog:
	case DriverAMQP:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for the amqp notifier")
		}
	case DriverTelegram:
		if c.TelegramToken == "" || c.TelegramChatID == 0 {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required for the telegram notifier")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}

	switch c.BadgeRenderer {
	case DriverLog, DriverRedis:
	case DriverAMQP:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for the amqp badge renderer")
		}
	default:
		return fmt.Errorf("unknown BADGE_RENDERER %q", c.BadgeRenderer)
	}

	switch c.MailStore {
	case MailStoreNone, MailStoreNotmuch:
	default:
		return fmt.Errorf("unknown MAIL_STORE %q", c.MailStore)
	}

	return nil
}

// Location returns the configured time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CheckInterval returns the due-check period.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// CORSOrigins splits FrontendURL on commas.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.FrontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// ParseClock parses an "HH:MM" wall-clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
