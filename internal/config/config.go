// Package config handles configuration loading for the auth service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all configuration for the auth service.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	SessionTTL    time.Duration
	UserCacheTTL  time.Duration
	AuthRateLimit int
	AuthRateWin   time.Duration
	BcryptCost    int

	AllowedOrigins []string
	SentryDSN      string

	Port        string
	Environment string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env file")
	}

	cfg := &Config{
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "gotchu"),
		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "gotchu.lol"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "gotchu-users"),
		SessionTTL:     getDuration("SESSION_TTL", 24*time.Hour),
		UserCacheTTL:   getDuration("USER_CACHE_TTL", 30*time.Minute),
		AuthRateLimit:  getInt("AUTH_RATE_LIMIT", 5),
		AuthRateWin:    getDuration("AUTH_RATE_WINDOW", 5*time.Minute),
		BcryptCost:     getInt("BCRYPT_COST", 12),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
	}

	secret, err := getEnvRequired("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(secret))
	}
	cfg.JWTSecret = secret

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid duration, using default")
		return defaultValue
	}
	return duration
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid integer, using default")
		return defaultValue
	}
	return value
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
