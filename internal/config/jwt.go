package config

import (
	"fmt"
	"os"
	"strconv"
)

// JWTConfig holds configuration for session token validation. Tokens are
// verified with RS256 when PublicKeyPEM is set, otherwise with HS256.
type JWTConfig struct {
	Secret          string `yaml:"secret"`
	PublicKeyPEM    string `yaml:"public_key_pem"`
	Issuer          string `yaml:"issuer"`
	ExpirationHours int    `yaml:"expiration_hours"`
}

func defaultJWTConfig() JWTConfig {
	return JWTConfig{ExpirationHours: 24}
}

// NewJWTConfig creates a JWT configuration from environment variables.
// It reads JWT_SECRET or CLERK_JWT_KEY (one is required), JWT_ISSUER and
// JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	config := defaultJWTConfig()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *JWTConfig) applyEnv() error {
	envString(&c.Secret, "JWT_SECRET")
	envString(&c.PublicKeyPEM, "CLERK_JWT_KEY")
	envString(&c.Issuer, "JWT_ISSUER")

	if v := os.Getenv("JWT_EXPIRATION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		c.ExpirationHours = hours
	}
	return nil
}

// Validate checks that a verification key is configured.
func (c *JWTConfig) Validate() error {
	if c.Secret == "" && c.PublicKeyPEM == "" {
		return fmt.Errorf("JWT_SECRET or CLERK_JWT_KEY is required but not set")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}

// UsesPublicKey reports whether tokens are verified with an RSA public key.
func (c *JWTConfig) UsesPublicKey() bool {
	return c.PublicKeyPEM != ""
}
