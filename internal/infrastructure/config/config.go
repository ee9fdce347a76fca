package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for authcore.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains token issuance and verification settings.
type JWTConfig struct {
	// Issuer is the value stamped into the iss claim of every token.
	Issuer string `yaml:"issuer"`

	// AccessTokenTTL is the access token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token lifetime in days.
	RefreshTokenTTL int `yaml:"refresh_token_ttl"`

	// RefreshSecret is the HS256 shared secret for refresh tokens.
	// Always override in production via AUTHCORE_JWT_REFRESH_SECRET.
	RefreshSecret string `yaml:"refresh_secret"`

	// PrivateKeyFile is the path to the PEM-encoded RSA private key
	// used to sign access tokens (RS256).
	PrivateKeyFile string `yaml:"private_key_file"`

	// JWKSURL optionally points the access-token guard at a remote
	// JSON Web Key Set instead of the locally loaded key. Used when
	// access tokens are minted by another deployment of this service.
	JWKSURL string `yaml:"jwks_url"`

	// CookieDomain scopes the accessToken/refreshToken cookies.
	CookieDomain string `yaml:"cookie_domain"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: AUTHCORE_SECTION_KEY,
// e.g. AUTHCORE_DATABASE_PATH, AUTHCORE_JWT_REFRESH_SECRET.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/authcore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Issuer:          "auth-service",
				AccessTokenTTL:  60,
				RefreshTokenTTL: 365,
				PrivateKeyFile:  "./certs/private.pem",
				CookieDomain:    "localhost",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AUTHCORE_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("AUTHCORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("AUTHCORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Database
	if v := os.Getenv("AUTHCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Logging
	if v := os.Getenv("AUTHCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Security - refresh secret and key material (always override in production)
	if v := os.Getenv("AUTHCORE_JWT_REFRESH_SECRET"); v != "" {
		cfg.Security.JWT.RefreshSecret = v
	}
	if v := os.Getenv("AUTHCORE_JWT_PRIVATE_KEY_FILE"); v != "" {
		cfg.Security.JWT.PrivateKeyFile = v
	}
	if v := os.Getenv("AUTHCORE_JWT_JWKS_URL"); v != "" {
		cfg.Security.JWT.JWKSURL = v
	}
	if v := os.Getenv("AUTHCORE_JWT_COOKIE_DOMAIN"); v != "" {
		cfg.Security.JWT.CookieDomain = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Security.JWT.Issuer == "" {
		errs = append(errs, "security.jwt.issuer is required")
	}

	if c.Security.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, "security.jwt.access_token_ttl must be positive")
	}

	if c.Security.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, "security.jwt.refresh_token_ttl must be positive")
	}

	if c.Security.JWT.PrivateKeyFile == "" {
		errs = append(errs, "security.jwt.private_key_file is required")
	}

	// Refresh secret is REQUIRED. An empty or weak secret would let
	// anyone forge refresh tokens and mint sessions at will.
	const minRefreshSecretLength = 32
	if c.Security.JWT.RefreshSecret == "" {
		errs = append(errs, "security.jwt.refresh_secret is required (set AUTHCORE_JWT_REFRESH_SECRET environment variable)")
	} else if len(c.Security.JWT.RefreshSecret) < minRefreshSecretLength {
		errs = append(errs, "security.jwt.refresh_secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// AccessTokenLifetime returns the access token TTL as a Duration.
func (c *JWTConfig) AccessTokenLifetime() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Minute
}

// RefreshTokenLifetime returns the refresh token TTL as a Duration.
func (c *JWTConfig) RefreshTokenLifetime() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * 24 * time.Hour
}
