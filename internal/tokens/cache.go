// Package tokens holds the in-memory API key store that the HTTP layer
// authenticates against, refreshed from Postgres by a Reloader.
package tokens

import "sync"

// Scope lists the route groups a key may call, e.g. {"tools": true}.
// An empty scope grants every group.
type Scope map[string]bool

// Entry is one API key's settings.
type Entry struct {
	// RateLimit is requests per limiter interval; 0 disables the token limiter.
	RateLimit int
	Scope     Scope
}

// Allows reports whether the entry may call the named route group.
func (e Entry) Allows(group string) bool {
	if len(e.Scope) == 0 {
		return true
	}
	return e.Scope[group] || e.Scope["*"]
}

// Cache is safe for concurrent use. It is not ready until the first Replace.
type Cache struct {
	mu sync.RWMutex
	m  map[string]Entry
}

func NewCache() *Cache {
	return &Cache{}
}

// Replace swaps the whole key set. A nil map is stored as empty so the cache
// still counts as loaded.
func (c *Cache) Replace(m map[string]Entry) {
	next := make(map[string]Entry, len(m))
	for k, v := range m {
		next[k] = v
	}
	c.mu.Lock()
	c.m = next
	c.mu.Unlock()
}

func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m != nil
}

func (c *Cache) Lookup(token string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[token]
	return e, ok
}

func (c *Cache) Validate(token string) bool {
	_, ok := c.Lookup(token)
	return ok
}

// RateLimit returns 0 for unknown tokens.
func (c *Cache) RateLimit(token string) int {
	e, _ := c.Lookup(token)
	return e.RateLimit
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
