// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	BackendURL     string // Marketplace REST API base, e.g. http://localhost:8000/api
	DBPath         string
	AllowedOrigins []string
	LogLevel       slog.Level
	Poll           PollConfig
	Timeout        TimeoutConfig
}

// PollConfig controls the conversation view refresh loop.
type PollConfig struct {
	Interval time.Duration
}

// TimeoutConfig groups outbound and startup timeouts.
type TimeoutConfig struct {
	HTTP        time.Duration
	Resolve     time.Duration
	HealthCheck time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8090"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000/api"), "/"),
		DBPath:         getEnv("DB_PATH", "./data/dashboard.db"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		Poll: PollConfig{
			Interval: getEnvDuration("POLL_INTERVAL", 5*time.Second),
		},
		Timeout: TimeoutConfig{
			HTTP:        getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
			Resolve:     getEnvDuration("RESOLVE_TIMEOUT", 15*time.Second),
			HealthCheck: 5 * time.Second,
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
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be > 0")
	}
	if c.Timeout.HTTP <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0")
	}
	if c.Timeout.Resolve <= 0 {
		return fmt.Errorf("RESOLVE_TIMEOUT must be > 0")
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

// getEnvDuration accepts Go durations ("5s") or bare seconds ("5").
// Unparseable values yield 0 so Validate reports them.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return 0
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
