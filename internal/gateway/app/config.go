package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	IdentityProviderURL string // Required: base URL of the identity provider
	ResourceServerURL   string // Required: base URL of the resource server

	StoreBackend string // Optional: session store backend (redis, sqlite, memory) (default: memory)
	RedisAddr    string // Optional: redis address when StoreBackend=redis (default: localhost:6379)
	DatabaseFile string // Optional: path to SQLite database file when StoreBackend=sqlite (default: ./gateway.db)

	AnonymousTTL  time.Duration // Optional: TTL of pre-login sessions (default: 10m)
	AuthorizedTTL time.Duration // Optional: TTL of logged-in sessions, reset on refresh (default: 1h)
	TokenSkew     time.Duration // Optional: proactive refresh window before token expiry (default: 10s)

	LoginFallbackPolicy string // Optional: behavior when login confirmation fails (strict, lenient) (default: strict)
	LoginRedirectPath   string // Optional: where the browser lands after login (default: /)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-session sweep interval (default: 10m)
}

func LoadConfig() Config {
	return Config{
		IdentityProviderURL: os.Getenv("GATEWAY_IDP_URL"),
		ResourceServerURL:   os.Getenv("GATEWAY_RESOURCE_URL"),

		StoreBackend: getEnvOrDefault("GATEWAY_STORE_BACKEND", "memory"),
		RedisAddr:    getEnvOrDefault("GATEWAY_REDIS_ADDR", "localhost:6379"),
		DatabaseFile: getEnvOrDefault("GATEWAY_DATABASE_FILE", "gateway.db"),

		AnonymousTTL:  getEnvDurationOrDefault("GATEWAY_ANONYMOUS_TTL", 10*time.Minute),
		AuthorizedTTL: getEnvDurationOrDefault("GATEWAY_AUTHORIZED_TTL", 1*time.Hour),
		TokenSkew:     getEnvDurationOrDefault("GATEWAY_TOKEN_SKEW", 10*time.Second),

		LoginFallbackPolicy: getEnvOrDefault("GATEWAY_LOGIN_FALLBACK_POLICY", "strict"),
		LoginRedirectPath:   getEnvOrDefault("GATEWAY_LOGIN_REDIRECT_PATH", "/"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 10*time.Minute),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
