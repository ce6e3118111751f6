// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported key-value backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	FrontendURL  string
	AgentAPIBase string
	KV           KVConfig
	Overlay      OverlayConfig
	RateLimit    RateLimitConfig
	Sessions     SessionConfig
}

// KVConfig selects and configures the persisted key-value backend.
type KVConfig struct {
	Backend       string // memory, sqlite or redis
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// OverlayConfig controls transient UI element lifetimes.
type OverlayConfig struct {
	NotificationTTL time.Duration
	SuggestionTTL   time.Duration
	ExitTransition  time.Duration
	SuggestionLimit int
}

// RateLimitConfig bounds agent commands per device.
type RateLimitConfig struct {
	CommandsPerSecond float64
	Burst             int
}

// SessionConfig controls server-side agent sessions.
type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		AgentAPIBase: strings.TrimRight(getEnv("AGENT_API_BASE", "http://localhost:8000/api/agent"), "/"),
		KV: KVConfig{
			Backend:       strings.ToLower(getEnv("KV_BACKEND", BackendSQLite)),
			DBPath:        getEnv("DB_PATH", "./data/storefront.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			RedisPrefix:   getEnv("REDIS_PREFIX", "shopagent:"),
		},
		Overlay: OverlayConfig{
			NotificationTTL: getEnvDuration("NOTIFICATION_TTL", 3*time.Second),
			SuggestionTTL:   getEnvDuration("SUGGESTION_TTL", 10*time.Second),
			ExitTransition:  getEnvDuration("EXIT_TRANSITION", 300*time.Millisecond),
			SuggestionLimit: getEnvInt("SUGGESTION_LIMIT", 4),
		},
		RateLimit: RateLimitConfig{
			CommandsPerSecond: getEnvFloat("COMMAND_RATE_PER_SEC", 2),
			Burst:             getEnvInt("COMMAND_RATE_BURST", 5),
		},
		Sessions: SessionConfig{
			IdleTTL:       getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.AgentAPIBase == "" {
		return fmt.Errorf("AGENT_API_BASE cannot be empty")
	}
	switch c.KV.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.KV.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case BackendRedis:
		if c.KV.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty")
		}
	default:
		return fmt.Errorf("KV_BACKEND must be one of memory, sqlite, redis (got %q)", c.KV.Backend)
	}
	if c.Overlay.NotificationTTL <= 0 || c.Overlay.SuggestionTTL <= 0 {
		return fmt.Errorf("NOTIFICATION_TTL and SUGGESTION_TTL must be > 0")
	}
	if c.Overlay.ExitTransition < 0 {
		return fmt.Errorf("EXIT_TRANSITION cannot be negative")
	}
	if c.Overlay.SuggestionLimit <= 0 {
		return fmt.Errorf("SUGGESTION_LIMIT must be > 0")
	}
	if c.RateLimit.CommandsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("COMMAND_RATE_PER_SEC and COMMAND_RATE_BURST must be > 0")
	}
	if c.Sessions.IdleTTL <= 0 || c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL and SESSION_SWEEP_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
