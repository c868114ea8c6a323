// Package ratelimit picks the shared storage behind the Fiber limiters.
package ratelimit

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/redis/go-redis/v9"

	"casestudy/internal/infra/logging"
)

// RedisConfig points the limiter at Redis. An empty Addr selects memory.
type RedisConfig struct {
	Addr string
	DB   int
}

const pingTimeout = time.Second

// NewStore returns Redis-backed storage when Redis answers a ping and
// in-memory storage otherwise. It never returns nil.
func NewStore(cfg RedisConfig) (store fiber.Storage) {
	if cfg.Addr == "" {
		logging.Info("Using in-memory storage for rate limiting")
		return memoryStorage.New()
	}
	if err := ping(cfg); err != nil {
		logging.Warn("Redis unavailable for rate limiting, falling back to memory", "addr", cfg.Addr, "error", err)
		return memoryStorage.New()
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			store = memoryStorage.New()
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Addr},
		Database: cfg.DB,
	})
	logging.Info("Using Redis for rate limiting", "addr", cfg.Addr, "db", cfg.DB)
	return store
}

func ping(cfg RedisConfig) error {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB, MaxRetries: -1})
	defer rdb.Close()
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
