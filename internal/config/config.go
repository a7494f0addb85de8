package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the chat server.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // PostgreSQL; empty in development falls back to SQLite
	SQLitePath  string
	RedisURL    string // optional; enables publish rate limiting

	JWTSecret string

	// Chat behaviour
	MaxMessageBytes int           // reject bodies larger than this
	HistoryLimit    int           // messages replayed on join
	StoreTimeout    time.Duration // bound on every persistence call
	SendBuffer      int           // per-session outbound queue

	// Liveness
	PongTimeout  time.Duration // read deadline; a silent peer is dead after this
	PingInterval time.Duration

	// Publish rate limit (per identity, requires Redis)
	PublishLimit  int
	PublishWindow time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/chatd.db"),
		RedisURL:        os.Getenv("REDIS_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		MaxMessageBytes: getEnvInt("MAX_MESSAGE_BYTES", 4096),
		HistoryLimit:    getEnvInt("HISTORY_LIMIT", 50),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		SendBuffer:      getEnvInt("SEND_BUFFER", 64),
		PongTimeout:     getEnvDuration("PONG_TIMEOUT", 90*time.Second),
		PingInterval:    getEnvDuration("PING_INTERVAL", 30*time.Second),
		PublishLimit:    getEnvInt("PUBLISH_LIMIT", 60),
		PublishWindow:   getEnvDuration("PUBLISH_WINDOW", time.Minute),
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.JWTSecret == "" {
			panic("JWT_SECRET is required in production")
		}
	}
	if cfg.JWTSecret == "" {
		// Development convenience only; tokens minted elsewhere won't verify.
		cfg.JWTSecret = "chatd-dev-secret"
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
