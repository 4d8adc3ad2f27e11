package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	envKeys := []string{
		"SOLAR_APP_NAME",
		"SOLAR_APP_ENV",
		"SOLAR_APP_PORT",
		"SOLAR_UPSTREAM_BASE_URL",
		"SOLAR_UPSTREAM_TIMEOUT",
		"SOLAR_UPSTREAM_PATHS_QUOTE_PAY",
		"SOLAR_DATABASE_HOST",
		"SOLAR_DATABASE_MAX_OPEN_CONNS",
		"SOLAR_DATABASE_MAX_IDLE_CONNS",
		"SOLAR_REDIS_ENABLED",
		"SOLAR_JWT_SECRET",
		"SOLAR_CACHE_POLL_INTERVAL",
		"SOLAR_CONFIRMATION_TTL",
		"SOLAR_TELEMETRY_SAMPLING_RATIO",
		"SOLAR_HTTP_CORS_ALLOW_ORIGINS",
	}
	originalEnv := make(map[string]string, len(envKeys))
	for _, k := range envKeys {
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

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "solar-negotiation", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "http://localhost:8000/api", cfg.Upstream.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, "/loan/action/{id}", cfg.Upstream.Paths.LoanCancel)
		assert.Equal(t, "/loan/{id}/agreement/", cfg.Upstream.Paths.LoanAgreement)
		assert.Equal(t, "/quote-requests/negotiate/{id}", cfg.Upstream.Paths.QuoteNegotiate)
		assert.Equal(t, "/quotes-requests/pay/{id}", cfg.Upstream.Paths.QuotePay)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, 2*time.Minute, cfg.Confirmation.TTL)
		assert.Equal(t, 500, cfg.Cache.MaxWatched)
		assert.Equal(t, "solar-negotiation", cfg.Telemetry.ServiceName)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("loads values from environment variables with SOLAR prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("SOLAR_APP_NAME", "portal-bff")
		os.Setenv("SOLAR_APP_PORT", "9000")
		os.Setenv("SOLAR_UPSTREAM_BASE_URL", "https://api.solar.test/v1")
		os.Setenv("SOLAR_UPSTREAM_TIMEOUT", "5s")
		os.Setenv("SOLAR_UPSTREAM_PATHS_QUOTE_PAY", "/quote-requests/pay/{id}")
		os.Setenv("SOLAR_REDIS_ENABLED", "true")
		os.Setenv("SOLAR_CACHE_POLL_INTERVAL", "10s")
		os.Setenv("SOLAR_CONFIRMATION_TTL", "45s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "portal-bff", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "https://api.solar.test/v1", cfg.Upstream.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, "/quote-requests/pay/{id}", cfg.Upstream.Paths.QuotePay)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 10*time.Second, cfg.Cache.PollInterval)
		assert.Equal(t, 45*time.Second, cfg.Confirmation.TTL)
	})

	t.Run("rejects relative upstream url", func(t *testing.T) {
		clearEnv()
		os.Setenv("SOLAR_UPSTREAM_BASE_URL", "/api")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream.base_url")
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		clearEnv()
		os.Setenv("SOLAR_DATABASE_MAX_OPEN_CONNS", "2")
		os.Setenv("SOLAR_DATABASE_MAX_IDLE_CONNS", "5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})

	t.Run("rejects out of range sampling ratio", func(t *testing.T) {
		clearEnv()
		os.Setenv("SOLAR_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestProductionValidation(t *testing.T) {
	base := func() *Config {
		cfg := &Config{App: AppConfig{Env: "production"}}
		applyDefaults(cfg)
		cfg.Upstream.BaseURL = "https://api.solar.test"
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, "jwt.secret is required"},
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }, "at least 32 characters"},
		{"plain http upstream", func(c *Config) { c.Upstream.BaseURL = "http://api.solar.test" }, "https"},
		{"wildcard cors", func(c *Config) { c.HTTP.CORSAllowOrigins = []string{"*"} }, "cors_allow_origins"},
		{"audit db without tls", func(c *Config) { c.Database.Enabled = true }, "sslmode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "audit", Password: "p@ss word", DBName: "solar", SSLMode: "require"}
	assert.Equal(t, "postgres://audit:p%40ss%20word@db:5432/solar?sslmode=require", d.DSN())
}
