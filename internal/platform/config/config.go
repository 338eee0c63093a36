// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Once loaded, configuration is read-only and handed to components through
their constructors. No component reads the environment on its own.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the auth API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing. One symmetric secret signs both token classes.
	TokenSigningSecret string        `env:"TOKEN_SIGNING_SECRET,required"`
	TokenIssuer        string        `env:"TOKEN_ISSUER"        envDefault:"authcore"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL"    envDefault:"720h"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL"   envDefault:"2160h"`

	// Validation cache
	SessionNegativeCacheTTL time.Duration `env:"SESSION_NEGATIVE_CACHE_TTL" envDefault:"60s"`

	// OAuth providers
	OAuthExchangeTimeout time.Duration `env:"OAUTH_EXCHANGE_TIMEOUT" envDefault:"10s"`
	Google               OAuthClient   `envPrefix:"GOOGLE_"`
	Facebook             OAuthClient   `envPrefix:"FACEBOOK_"`

	// Audit trail
	AuditIPSecret   string `env:"AUDIT_IP_SECRET,required"`
	AuditBufferSize int    `env:"AUDIT_BUFFER_SIZE" envDefault:"1024"`

	// Tracing is disabled when the endpoint is empty.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// TrustedProxies lists proxy addresses or CIDR ranges whose X-Real-IP and
	// X-Forwarded-For headers are believed. Empty trusts nobody.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

// OAuthClient holds the registered client credentials for one provider.
// A provider with an empty ClientID is not registered.
type OAuthClient struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Enabled reports whether the provider has credentials configured.
func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given key/value map instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(options env.Options) (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return errors.New("REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	if c.SessionNegativeCacheTTL <= 0 {
		return errors.New("SESSION_NEGATIVE_CACHE_TTL must be positive")
	}
	if c.AuditBufferSize <= 0 {
		return errors.New("AUDIT_BUFFER_SIZE must be positive")
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
