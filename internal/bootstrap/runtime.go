// Package bootstrap wires process-level dependencies shared by the commands.
package bootstrap

import (
	"fmt"

	"pariposhan/internal/cache"
	"pariposhan/internal/config"
	"pariposhan/internal/database"
	"pariposhan/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedBuiltIns upserts the built-in verified product catalog.
	SeedBuiltIns bool
}

// InitRuntime connects to DB and Redis and optionally runs built-in seeding.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedBuiltIns {
		if err := seed.Products(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in catalog: %w", err)
		}
	}

	return db, r, nil
}
