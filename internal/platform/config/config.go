// Copyright (c) 2026 Nexora. All rights reserved.
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

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (keys, stores, clients) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Nexora gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// BackendURL is the base URL of the upstream social-platform API that
	// authorized requests are proxied to.
	BackendURL string `env:"BACKEND_URL,required"`

	// RedisURL switches the session store to the shared Redis implementation
	// when set. Empty means the single-instance in-memory store.
	RedisURL string `env:"REDIS_URL"`

	// Signing keypair, base64-encoded PEM. Parsed lazily on first use; a
	// malformed key is a fatal configuration error at that point.
	JWTPrivateKey string `env:"JWT_PRIVATE_KEY,required"`
	JWTPublicKey  string `env:"JWT_PUBLIC_KEY,required"`

	// Access-token envelope values
	TokenIssuer   string `env:"TOKEN_ISSUER"   envDefault:"nexora.app"`
	TokenAudience string `env:"TOKEN_AUDIENCE" envDefault:"nexora-api"`

	// AdminUsers is a comma-separated list of user identifiers granted the
	// elevated role at login.
	AdminUsers string `env:"ADMIN_USERS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// AdminList returns the administrative identity list as a cleaned slice.
func (c *Config) AdminList() []string {
	if strings.TrimSpace(c.AdminUsers) == "" {
		return nil
	}

	parts := strings.Split(c.AdminUsers, ",")
	admins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			admins = append(admins, trimmed)
		}
	}
	return admins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
