// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 32

type Config struct {
	DBDriver string
	DSN      string

	Port      string
	JWTSecret string

	// RedisURL is empty when the board cache is disabled.
	RedisURL      string
	BoardCacheTTL time.Duration

	RateLimit       int
	RateLimitWindow time.Duration
	RequestTimeout  time.Duration
	Debug           bool
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment and checks the
// database settings. Server settings are checked by ValidateServer.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDriver:  getenv("DB_DRIVER", "postgres"),
		DSN:       os.Getenv("DATABASE_URL"),
		Port:      os.Getenv("SERVER_PORT_TASKS"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		RedisURL:  os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.BoardCacheTTL, err = durationEnv("BOARD_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = intEnv("RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = durationEnv("RATE_LIMIT_WINDOW", time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if raw := os.Getenv("DEBUG"); raw != "" {
		if cfg.Debug, err = strconv.ParseBool(raw); err != nil {
			return nil, fmt.Errorf("DEBUG: %w", err)
		}
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DSN == "" {
			if cfg.DSN, err = postgresDSN(); err != nil {
				return nil, err
			}
		}
	case "sqlite3":
		if cfg.DSN == "" {
			return nil, errors.New("environment variable DATABASE_URL must be set for sqlite3")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

// ValidateServer checks the settings needed to serve HTTP.
func (c *Config) ValidateServer() error {
	if c.Port == "" {
		return errors.New("environment variable SERVER_PORT_TASKS must be set")
	}
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if c.RateLimit <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func postgresDSN() (string, error) {
	required := []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT"}
	for _, env := range required {
		if os.Getenv(env) == "" {
			return "", fmt.Errorf("environment variable %s must be set", env)
		}
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("POSTGRES_HOST"), os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_DB"), os.Getenv("POSTGRES_PORT")), nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
