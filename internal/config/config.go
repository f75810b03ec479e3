package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverBolt   = "bolt"
)

// Config holds all application configuration
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramAPIURL string // empty means api.telegram.org

	// AniList
	AniListURL           string
	AniListRatePerMinute int

	// Checking
	CheckInterval   time.Duration // CHECK_INTERVAL_MS, one hour by default
	RunOnStart      bool          // Run a cycle immediately when the scheduler starts
	CheckWorkers    int           // Concurrent entries per cycle (1 = sequential)
	LookupTimeout   time.Duration
	DispatchTimeout time.Duration
	NotifyDedupe    bool // Remember the last notified episode per user and title

	// Storage
	StoreDriver  string
	DatabaseFile string // $CONFIG_DIR/airingbot.db or airingbot.bolt

	// Server
	ServerPort string

	// Observability
	TracingEnabled bool
	LogLevel       string
	LogFormat      string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = v.ReadInConfig()

	v.SetDefault("ANILIST_URL", "https://graphql.anilist.co")
	v.SetDefault("ANILIST_RATE_PER_MINUTE", 60)
	v.SetDefault("CHECK_INTERVAL_MS", 3600000)
	v.SetDefault("RUN_ON_START", false)
	v.SetDefault("CHECK_WORKERS", 1)
	v.SetDefault("LOOKUP_TIMEOUT", "5s")
	v.SetDefault("DISPATCH_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_DEDUPE", true)
	v.SetDefault("STORE_DRIVER", StoreDriverSQLite)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "airingbot")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))
	dbName := "airingbot.db"
	if driver == StoreDriverBolt {
		dbName = "airingbot.bolt"
	}

	config := &Config{
		TelegramToken:  strings.TrimSpace(v.GetString("TELEGRAM_TOKEN")),
		TelegramAPIURL: strings.TrimRight(v.GetString("TELEGRAM_API_URL"), "/"),

		AniListURL:           v.GetString("ANILIST_URL"),
		AniListRatePerMinute: v.GetInt("ANILIST_RATE_PER_MINUTE"),

		CheckInterval:   time.Duration(v.GetInt64("CHECK_INTERVAL_MS")) * time.Millisecond,
		RunOnStart:      v.GetBool("RUN_ON_START"),
		CheckWorkers:    v.GetInt("CHECK_WORKERS"),
		LookupTimeout:   v.GetDuration("LOOKUP_TIMEOUT"),
		DispatchTimeout: v.GetDuration("DISPATCH_TIMEOUT"),
		NotifyDedupe:    v.GetBool("NOTIFY_DEDUPE"),

		StoreDriver:  driver,
		DatabaseFile: filepath.Join(configDir, dbName),

		ServerPort: v.GetString("SERVER_PORT"),

		TracingEnabled: v.GetBool("TRACING_ENABLED"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.CheckInterval < time.Second {
		return fmt.Errorf("CHECK_INTERVAL_MS must be at least 1000, got %d", c.CheckInterval.Milliseconds())
	}
	if c.CheckWorkers < 1 {
		return fmt.Errorf("CHECK_WORKERS must be at least 1")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT must be positive")
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("DISPATCH_TIMEOUT must be positive")
	}
	if c.AniListRatePerMinute < 1 {
		return fmt.Errorf("ANILIST_RATE_PER_MINUTE must be at least 1")
	}
	switch c.StoreDriver {
	case StoreDriverSQLite, StoreDriverBolt:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// RequireTelegram reports an error when the bot token is missing.
// Only commands that talk to Telegram need it.
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}
