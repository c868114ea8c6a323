package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
)

func TestNewStore_AlwaysReturnsStorage(t *testing.T) {
	if s := NewStore(RedisConfig{}); s == nil {
		t.Fatalf("expected non-nil memory store when redis addr empty")
	}

	s := NewStore(RedisConfig{Addr: "127.0.0.1:1", DB: 0})
	if s == nil {
		t.Fatalf("expected non-nil store even with redis config")
	}
	if _, ok := s.(*memoryStorage.Storage); !ok {
		t.Fatalf("expected memory fallback for unreachable redis, got %T", s)
	}
}

func TestNewStore_UsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewStore(RedisConfig{Addr: mr.Addr()})
	if _, ok := s.(*memoryStorage.Storage); ok {
		t.Fatalf("expected redis-backed storage")
	}
	if err := s.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("k") {
		t.Fatalf("expected key written to redis")
	}
	_ = s.Close()
}
