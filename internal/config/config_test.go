package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("CatalogRefresh converts seconds to duration", func(t *testing.T) {
		cfg := &Config{CatalogRefreshSeconds: 5}
		assert.Equal(t, 5*time.Second, cfg.CatalogRefresh())
	})

	t.Run("ReloadDebounce converts milliseconds to duration", func(t *testing.T) {
		cfg := &Config{ReloadDebounceMS: 200}
		assert.Equal(t, 200*time.Millisecond, cfg.ReloadDebounce())
	})

	t.Run("PlayerIdle converts minutes to duration", func(t *testing.T) {
		cfg := &Config{PlayerIdleMinutes: 15}
		assert.Equal(t, 15*time.Minute, cfg.PlayerIdle())
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreBackend:          StoreBackendPostgres,
			RedisURL:              "rediss://localhost:6379",
			CatalogRefreshSeconds: 5,
			ReloadDebounceMS:      200,
		}
	}

	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate(false))
	})

	t.Run("rejects unknown store backend", func(t *testing.T) {
		cfg := valid()
		cfg.StoreBackend = "sqlite"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-bcrypt operator hash", func(t *testing.T) {
		cfg := valid()
		cfg.OperatorPasswordHash = "plaintext"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts bcrypt operator hash", func(t *testing.T) {
		cfg := valid()
		cfg.OperatorPasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects short encryption key", func(t *testing.T) {
		cfg := valid()
		cfg.EncryptionKey = "abcd"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts 32-byte hex encryption key", func(t *testing.T) {
		cfg := valid()
		cfg.EncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects memory backend in production", func(t *testing.T) {
		cfg := valid()
		cfg.StoreBackend = StoreBackendMemory
		assert.NoError(t, cfg.Validate(false))
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("rejects non-positive catalog refresh", func(t *testing.T) {
		cfg := valid()
		cfg.CatalogRefreshSeconds = 0
		assert.Error(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "STORE_BACKEND", "AMQP_URL",
		"CATALOG_REFRESH_SECONDS", "RELOAD_DEBOUNCE_MS", "LOG_LEVEL",
	}
	originalEnv := make(map[string]string, len(keys))
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("STORE_BACKEND")
		os.Unsetenv("AMQP_URL")
		os.Unsetenv("CATALOG_REFRESH_SECONDS")
		os.Unsetenv("RELOAD_DEBOUNCE_MS")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, "screen.impressions", cfg.ImpressionQueue)
		assert.Equal(t, 5, cfg.CatalogRefreshSeconds)
		assert.Equal(t, 200, cfg.ReloadDebounceMS)
		assert.Equal(t, 15, cfg.PlayerIdleMinutes)
		assert.Equal(t, 10, cfg.PairingRateLimitPerMin)
		assert.Equal(t, 60, cfg.StatusRateLimitPerMin)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Empty(t, cfg.AMQPURL)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("STORE_BACKEND", "redis")
		os.Setenv("RELOAD_DEBOUNCE_MS", "50")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, StoreBackendRedis, cfg.StoreBackend)
		assert.Equal(t, 50, cfg.ReloadDebounceMS)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
