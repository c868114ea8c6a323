package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"casestudy/internal/infra/logging"
)

const cacheOpTimeout = time.Second

// Cache stores raw tool responses in Redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key for a query and result count.
func Key(query string, n int) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(n)))
	return "searchcache:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached body. Misses and Redis errors both report false;
// errors are logged.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, false
	}
	logging.Debug("Search cache hit", "key", key)
	return b, true
}

func (c *Cache) Set(ctx context.Context, key string, body []byte) {
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, body, c.ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
