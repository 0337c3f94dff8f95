package sessions

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"miniblog/internal/platform/config"
)

// Connect builds the Redis client backing the session registry and verifies
// it is reachable.
func Connect(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return rdb, nil
}
