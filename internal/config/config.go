// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const minSecretLen = 32

// Config holds application configuration loaded from the environment.
// It is built once at startup and injected; no component reads env vars directly.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis host:port backing the token blacklist and 2FA login tickets.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the Redis database number.
	RedisDB int `mapstructure:"REDIS_DB"`

	// JWTSecret signs access tokens. Required, at least 32 chars.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTRefreshSecret signs refresh tokens. Required, at least 32 chars, must differ from JWTSecret.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTExpiration is the access token lifetime (e.g. "7d", "15m").
	JWTExpiration string `mapstructure:"JWT_EXPIRATION"`
	// JWTRefreshExpiration is the refresh token lifetime (e.g. "30d").
	JWTRefreshExpiration string `mapstructure:"JWT_REFRESH_EXPIRATION"`
	// JWTIssuer is the iss claim on minted tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	// TwoFactorEncryptionKey encrypts TOTP secrets and recovery codes at rest. Required, at least 32 chars.
	TwoFactorEncryptionKey string `mapstructure:"TWO_FACTOR_ENCRYPTION_KEY"`
	// TwoFactorIssuer is the issuer label in otpauth:// URIs.
	TwoFactorIssuer string `mapstructure:"TWO_FACTOR_ISSUER"`

	// FingerprintIPv4Bits is the IPv4 prefix width bound into token fingerprints (default 24).
	FingerprintIPv4Bits int `mapstructure:"FINGERPRINT_IPV4_BITS"`
	// FingerprintIPv6Bits is the IPv6 prefix width bound into token fingerprints (default 64).
	FingerprintIPv6Bits int `mapstructure:"FINGERPRINT_IPV6_BITS"`

	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// StoreTimeout bounds every blacklist and ticket store call (default 2s).
	StoreTimeout time.Duration `mapstructure:"STORE_TIMEOUT"`
	// SessionSweepInterval is the cadence of the expired-session sweeper (default 1h).
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`
	// Env is the application environment ("development", "production"). Controls the Secure cookie flag.
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
// The secret contract is enforced here and violations are fatal boot errors:
// there is no runtime fallback to a default secret.
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
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", "7d")
	v.SetDefault("JWT_REFRESH_EXPIRATION", "30d")
	v.SetDefault("JWT_ISSUER", "authcore")
	v.SetDefault("TWO_FACTOR_ENCRYPTION_KEY", "")
	v.SetDefault("TWO_FACTOR_ISSUER", "authcore")
	v.SetDefault("FINGERPRINT_IPV4_BITS", 24)
	v.SetDefault("FINGERPRINT_IPV6_BITS", 64)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("STORE_TIMEOUT", "2s")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	v.SetDefault("APP_ENV", "development")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
		return err
	}
	if err := validateSecret("JWT_REFRESH_SECRET", c.JWTRefreshSecret); err != nil {
		return err
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return errors.New("config: JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if err := validateSecret("TWO_FACTOR_ENCRYPTION_KEY", c.TwoFactorEncryptionKey); err != nil {
		return err
	}
	if _, err := ParseExpiry(c.JWTExpiration); err != nil {
		return fmt.Errorf("config: JWT_EXPIRATION: %w", err)
	}
	if _, err := ParseExpiry(c.JWTRefreshExpiration); err != nil {
		return fmt.Errorf("config: JWT_REFRESH_EXPIRATION: %w", err)
	}
	if c.FingerprintIPv4Bits < 8 || c.FingerprintIPv4Bits > 32 {
		return errors.New("config: FINGERPRINT_IPV4_BITS must be between 8 and 32")
	}
	if c.FingerprintIPv6Bits < 16 || c.FingerprintIPv6Bits > 128 {
		return errors.New("config: FINGERPRINT_IPV6_BITS must be between 16 and 128")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 2 * time.Second
	}
	return nil
}

func validateSecret(name, value string) error {
	if value == "" {
		return fmt.Errorf("config: %s must be set", name)
	}
	if len(value) < minSecretLen {
		return fmt.Errorf("config: %s must be at least %d characters", name, minSecretLen)
	}
	return nil
}

// AccessTTL returns the access token lifetime. Config is validated at Load,
// so parse failures cannot happen here.
func (c *Config) AccessTTL() time.Duration {
	d, _ := ParseExpiry(c.JWTExpiration)
	return d
}

// RefreshTTL returns the refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	d, _ := ParseExpiry(c.JWTRefreshExpiration)
	return d
}

// IsProduction reports whether the app runs with production hardening (Secure cookies).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
