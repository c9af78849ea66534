// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis host:port backing the access-token blacklist.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis auth password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim on user tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTServiceIssuer is the iss claim on the shared service token.
	JWTServiceIssuer string `mapstructure:"JWT_SERVICE_ISSUER"`
	// JWTAudience is the aud claim on user tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime for regular users (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime for regular users (e.g. "24h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// JWTAdminAccessTTL is the shorter access lifetime for admin tokens.
	JWTAdminAccessTTL string `mapstructure:"JWT_ADMIN_ACCESS_TTL"`
	// JWTAdminRefreshTTL is the shorter refresh lifetime for admin tokens.
	JWTAdminRefreshTTL string `mapstructure:"JWT_ADMIN_REFRESH_TTL"`
	// JWTServiceTTL is the shared service token lifetime.
	JWTServiceTTL string `mapstructure:"JWT_SERVICE_TTL"`

	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// MaxLoginFailures is the failed-login count that opens a lockout window.
	MaxLoginFailures int `mapstructure:"MAX_LOGIN_FAILURES"`
	// LockoutWindow is how long a locked account stays locked (e.g. "120s").
	LockoutWindow string `mapstructure:"LOCKOUT_WINDOW"`

	// NotifyKafkaBrokers is a comma-separated broker list; empty disables
	// revocation push notifications.
	NotifyKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// NotifyKafkaTopic is the topic the connection gateway consumes.
	NotifyKafkaTopic string `mapstructure:"NOTIFY_KAFKA_TOPIC"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables telemetry.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_ISSUER", "neo-auth")
	v.SetDefault("JWT_SERVICE_ISSUER", "neo-root")
	v.SetDefault("JWT_AUDIENCE", "neo-app")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "24h")
	v.SetDefault("JWT_ADMIN_ACCESS_TTL", "5m")
	v.SetDefault("JWT_ADMIN_REFRESH_TTL", "1h")
	v.SetDefault("JWT_SERVICE_TTL", "2m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MAX_LOGIN_FAILURES", 3)
	v.SetDefault("LOCKOUT_WINDOW", "120s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("NOTIFY_KAFKA_TOPIC", "neo-auth-notify")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.MaxLoginFailures <= 0 {
		return nil, errors.New("config: MAX_LOGIN_FAILURES must be positive")
	}

	return &cfg, nil
}

func (c *Config) ttl(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// AccessTTL parses JWTAccessTTL. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration { return c.ttl(c.JWTAccessTTL, 15*time.Minute) }

// RefreshTTL parses JWTRefreshTTL. Returns 24h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration { return c.ttl(c.JWTRefreshTTL, 24*time.Hour) }

// AdminAccessTTL parses JWTAdminAccessTTL. Returns 5m if unset or invalid.
func (c *Config) AdminAccessTTL() time.Duration { return c.ttl(c.JWTAdminAccessTTL, 5*time.Minute) }

// AdminRefreshTTL parses JWTAdminRefreshTTL. Returns 1h if unset or invalid.
func (c *Config) AdminRefreshTTL() time.Duration { return c.ttl(c.JWTAdminRefreshTTL, time.Hour) }

// ServiceTTL parses JWTServiceTTL. Returns 2m if unset or invalid.
func (c *Config) ServiceTTL() time.Duration { return c.ttl(c.JWTServiceTTL, 2*time.Minute) }

// LockoutDuration parses LockoutWindow. Returns 120s if unset or invalid.
func (c *Config) LockoutDuration() time.Duration { return c.ttl(c.LockoutWindow, 120*time.Second) }

// KafkaBrokersList returns broker addresses from the comma-separated config.
// A non-empty list enables revocation push notifications.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.NotifyKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.NotifyKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
