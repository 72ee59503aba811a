package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Okta configuration
	OktaIssuer          string
	OktaClientID        string
	JWKSCacheTTL        time.Duration
	OktaHTTPTimeout     time.Duration
	AllowIssuerAudience bool

	// Role assignment allow-list
	AllowedRoles []string

	// Server configuration
	ServerPort int
}

// LoadConfig loads configuration from environment variables. The Okta issuer
// and client ID are mandatory; their absence is a startup failure, not a
// per-request one.
func LoadConfig() (*Config, error) {
	// Load .env from project root
	_ = godotenv.Load()

	cacheTTL, err := time.ParseDuration(getEnv("JWKS_CACHE_TTL", "1h"))
	if err != nil {
		return nil, err
	}

	httpTimeout, err := time.ParseDuration(getEnv("OKTA_HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "owner"),
		DBPassword: getEnv("DB_PASSWORD", "ownerTest"),
		DBName:     getEnv("DB_NAME", "identity"),

		OktaIssuer:          strings.TrimRight(getEnv("OKTA_ISSUER", ""), "/"),
		OktaClientID:        getEnv("OKTA_CLIENT_ID", ""),
		JWKSCacheTTL:        cacheTTL,
		OktaHTTPTimeout:     httpTimeout,
		AllowIssuerAudience: getEnvBool("OKTA_ALLOW_ISSUER_AUDIENCE", true),

		AllowedRoles: splitList(getEnv("ROLES_ALLOWED",
			strings.Join([]string{domain.RoleBasicUser, domain.RoleEditor, domain.RoleAdmin}, ","))),

		ServerPort: getEnvInt("PORT", 8080),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the mandatory identity-provider settings are present
func (c *Config) Validate() error {
	if c.OktaIssuer == "" {
		return fmt.Errorf("%w: OKTA_ISSUER is required", domain.ErrProviderNotConfigured)
	}
	if c.OktaClientID == "" {
		return fmt.Errorf("%w: OKTA_CLIENT_ID is required", domain.ErrProviderNotConfigured)
	}
	return nil
}

// RoleAllowed reports whether the named role is in the assignment allow-list
func (c *Config) RoleAllowed(name string) bool {
	for _, r := range c.AllowedRoles {
		if r == name {
			return true
		}
	}
	return false
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
