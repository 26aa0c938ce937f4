// Package config reads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is shared by the server and historian binaries.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	WinScore     int           `env:"GAME_WIN_SCORE" envDefault:"100"`
	MinPlayers   int           `env:"GAME_MIN_PLAYERS" envDefault:"2"`
	MaxPlayers   int           `env:"GAME_MAX_PLAYERS" envDefault:"4"`
	GuardTimeout time.Duration `env:"GUARD_TIMEOUT" envDefault:"0s"`

	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"0s"`

	HistorianEnabled   bool   `env:"HISTORIAN_ENABLED" envDefault:"false"`
	HistorianQueueName string `env:"HISTORIAN_QUEUE_NAME" envDefault:"kokodi_events"`
	HistorianBatchSize int    `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlushMs   int    `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`

	TokenExpireTime   string `env:"TOKEN_EXPIRE_TIME" envDefault:"1h"`
	JWTPrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.WinScore <= 0 {
		errs = append(errs, fmt.Errorf("GAME_WIN_SCORE must be positive, got %d", c.WinScore))
	}
	if c.MinPlayers < 2 {
		errs = append(errs, fmt.Errorf("GAME_MIN_PLAYERS must be at least 2, got %d", c.MinPlayers))
	}
	if c.MaxPlayers < c.MinPlayers {
		errs = append(errs, fmt.Errorf("GAME_MAX_PLAYERS (%d) must not be below GAME_MIN_PLAYERS (%d)", c.MaxPlayers, c.MinPlayers))
	}
	if c.GuardTimeout < 0 {
		errs = append(errs, fmt.Errorf("GUARD_TIMEOUT must not be negative"))
	}
	switch c.StorageBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.HistorianBatchSize <= 0 || c.HistorianFlushMs <= 0 {
		errs = append(errs, errors.New("HISTORIAN_BATCH_SIZE and HISTORIAN_FLUSH_MS must be positive"))
	}
	if (c.JWTPrivateKeyPath == "") != (c.JWTPublicKeyPath == "") {
		errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// HistorianFlushEvery is HISTORIAN_FLUSH_MS as a duration.
func (c *Config) HistorianFlushEvery() time.Duration {
	return time.Duration(c.HistorianFlushMs) * time.Millisecond
}

// Addr is the listen address for PORT.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// NewLogger builds the process logger at LOG_LEVEL.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
