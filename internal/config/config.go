package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Port                   int    `env:"PORT" envDefault:"8080"`
	StoreBackend           string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL            string `env:"DATABASE_URL,required"`
	RedisURL               string `env:"REDIS_URL,required"`
	AMQPURL                string `env:"AMQP_URL"`
	ImpressionQueue        string `env:"IMPRESSION_QUEUE" envDefault:"screen.impressions"`
	EncryptionKey          string `env:"ENCRYPTION_KEY"`
	OperatorPasswordHash   string `env:"OPERATOR_PASSWORD_HASH"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
	CatalogRefreshSeconds  int    `env:"CATALOG_REFRESH_SECONDS" envDefault:"5"`
	ReloadDebounceMS       int    `env:"RELOAD_DEBOUNCE_MS" envDefault:"200"`
	PlayerIdleMinutes      int    `env:"PLAYER_IDLE_MINUTES" envDefault:"15"`
	PairingRateLimitPerMin int    `env:"PAIRING_RATE_LIMIT_PER_MIN" envDefault:"10"`
	StatusRateLimitPerMin  int    `env:"PAIRING_STATUS_RATE_LIMIT_PER_MIN" envDefault:"60"`
}

func (c *Config) CatalogRefresh() time.Duration {
	return time.Duration(c.CatalogRefreshSeconds) * time.Second
}

func (c *Config) ReloadDebounce() time.Duration {
	return time.Duration(c.ReloadDebounceMS) * time.Millisecond
}

func (c *Config) PlayerIdle() time.Duration {
	return time.Duration(c.PlayerIdleMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendRedis, StoreBackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of postgres, redis, memory (got %q)", c.StoreBackend)
	}

	if c.OperatorPasswordHash != "" {
		if !strings.HasPrefix(c.OperatorPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.OperatorPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.OperatorPasswordHash, "$2y$") {
			return fmt.Errorf("OPERATOR_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if c.EncryptionKey != "" {
		key, err := hex.DecodeString(c.EncryptionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
		}
	}

	if c.CatalogRefreshSeconds < 1 {
		return fmt.Errorf("CATALOG_REFRESH_SECONDS must be positive")
	}
	if c.ReloadDebounceMS < 0 {
		return fmt.Errorf("RELOAD_DEBOUNCE_MS must not be negative")
	}

	if isProduction {
		if c.StoreBackend == StoreBackendMemory {
			return fmt.Errorf("STORE_BACKEND=memory loses every pairing on restart; use postgres or redis in production")
		}
		if c.OperatorPasswordHash == "" {
			log.Warn().Msg("OPERATOR_PASSWORD_HASH is empty in production: /admin and /metrics are disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: pending session tokens use a per-process key and are lost on restart")
		}
		if c.AMQPURL == "" {
			log.Warn().Msg("AMQP_URL is empty in production: impressions are only logged")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
