package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	History HistoryConfig
	Redis   RedisConfig

	CatalogPath string
}

type ServerConfig struct {
	Port int
}

type EngineConfig struct {
	// Fetcher selects the page fetcher implementation: "browser" for
	// headless Chromium, "http" for the plain HTTP shim.
	Fetcher      string
	Headless     bool
	NavTimeout   time.Duration
	MaxParallel  int
	RetryCount   int
	RetryBackoff time.Duration
	SettleDelay  time.Duration
	TieTolerance float64
	UserAgent    string
}

type HistoryConfig struct {
	File        string
	DatabaseURL string
	MaxEntries  int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func Load() (*Config, error) {
	// A missing .env is fine, real env vars win anyway.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8090),
		},
		Engine: EngineConfig{
			Fetcher:      getEnv("MONITOR_FETCHER", "browser"),
			Headless:     getEnvBool("MONITOR_HEADLESS", true),
			NavTimeout:   getEnvDuration("MONITOR_NAV_TIMEOUT_MS", 30*time.Second),
			MaxParallel:  getEnvInt("MONITOR_MAX_PARALLEL", 3),
			RetryCount:   getEnvInt("MONITOR_RETRY_COUNT", 1),
			RetryBackoff: getEnvDuration("MONITOR_RETRY_BACKOFF_MS", 2*time.Second),
			SettleDelay:  getEnvDuration("MONITOR_SETTLE_MS", 500*time.Millisecond),
			TieTolerance: getEnvFloat("MONITOR_TIE_TOLERANCE", 0.10),
			UserAgent:    getEnv("MONITOR_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		},
		History: HistoryConfig{
			File:        getEnv("MONITOR_HISTORY_FILE", "monitor_history.json"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			MaxEntries:  getEnvInt("MONITOR_HISTORY_MAX", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "monitor.sync"),
		},
		CatalogPath: getEnv("MONITOR_CATALOG", "catalog.json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Engine.Fetcher != "browser" && c.Engine.Fetcher != "http" {
		return fmt.Errorf("unknown fetcher %q (want browser or http)", c.Engine.Fetcher)
	}

	if c.Engine.MaxParallel < 1 {
		return fmt.Errorf("at least 1 parallel fetch is required")
	}

	if c.Engine.RetryCount < 0 {
		return fmt.Errorf("retry count must not be negative")
	}

	if c.Engine.TieTolerance < 0 {
		return fmt.Errorf("tie tolerance must not be negative")
	}

	if c.History.File == "" && c.History.DatabaseURL == "" {
		return fmt.Errorf("either a history file or DATABASE_URL is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
