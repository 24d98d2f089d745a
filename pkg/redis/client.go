// Package redis provides Redis client utilities.
package redis

import (
	"crypto/tls"
	"fmt"

	"github.com/prian3003/gotchu-auth/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client from service configuration. The client
// dials lazily; callers verify connectivity via store.Connect.
func NewClient(cfg *config.Config) *redis.Client {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	}

	// Managed Redis deployments require TLS when auth is enabled
	if cfg.RedisPassword != "" {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return redis.NewClient(options)
}
