package profiles

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	username string
	expires  time.Time
}

// CachingResolver wraps another Resolver with a TTL-based in-memory cache.
// Invite bursts repeatedly resolve the same handful of users; caching keeps
// them off the users table.
type CachingResolver struct {
	base Resolver
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingResolver returns a Resolver that caches lookups for the provided TTL.
func NewCachingResolver(base Resolver, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingResolver{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// Username returns a cached display name when available, otherwise it
// delegates to the underlying resolver and stores the result.
func (c *CachingResolver) Username(ctx context.Context, userID string) (string, error) {
	if c == nil || c.base == nil {
		return "", ErrResolverUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[userID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.username, nil
	}

	username, err := c.base.Username(ctx, userID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.items[userID] = cacheEntry{username: username, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return username, nil
}
