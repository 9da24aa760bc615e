// Package config reads the server configuration from the environment.
//
// A .env file in the working directory is loaded first when present (see
// Load); real environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP      HTTPConfig
	Telegram  TelegramConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	LogLevel  slog.Level
}

type HTTPConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type TelegramConfig struct {
	BotToken string
	// InitDataMaxAge rejects launch payloads older than this. Zero disables
	// the check.
	InitDataMaxAge time.Duration
}

type StorageConfig struct {
	// DatabaseURL selects Postgres when it is a postgres:// URL.
	DatabaseURL string
	// DBPath is the SQLite file used otherwise.
	DBPath string
}

// UsePostgres reports whether DatabaseURL points at a Postgres server.
func (s StorageConfig) UsePostgres() bool {
	return strings.HasPrefix(s.DatabaseURL, "postgres://") ||
		strings.HasPrefix(s.DatabaseURL, "postgresql://")
}

type RateLimitConfig struct {
	// RedisURL switches to the shared Redis limiter when set.
	RedisURL string
	RPS      float64
	Burst    int
}

// Load reads .env if it exists and then the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return FromEnv()
}

// FromEnv builds the Config. TELEGRAM_BOT_TOKEN is the only required value.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Port:            envInt("PORT", 8080),
			ReadTimeout:     envDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    envDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: envDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Telegram: TelegramConfig{
			BotToken:       envString("TELEGRAM_BOT_TOKEN", ""),
			InitDataMaxAge: envDuration("INIT_DATA_MAX_AGE", 0),
		},
		Storage: StorageConfig{
			DatabaseURL: envString("DATABASE_URL", ""),
			DBPath:      envString("DB_PATH", "data/dashboard.db"),
		},
		RateLimit: RateLimitConfig{
			RedisURL: envString("REDIS_URL", ""),
			RPS:      envFloat64("RATE_LIMIT_RPS", 5),
			Burst:    envInt("RATE_LIMIT_BURST", 20),
		},
		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return Config{}, errors.New("config: TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.Storage.DatabaseURL != "" && !cfg.Storage.UsePostgres() {
		return Config{}, fmt.Errorf("config: DATABASE_URL must be a postgres:// URL")
	}
	if cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0 {
		return Config{}, errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return cfg, nil
}
