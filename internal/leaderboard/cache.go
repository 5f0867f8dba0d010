package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedSource wraps a Source with a short-lived in-memory cache so that
// leaderboard reads triggered by login and broadcast fan-out do not hammer
// the database. Writes flush the cache, so a freshly recorded score is
// visible on the next read.
type CachedSource struct {
	src   Source
	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedSource creates a CachedSource with the given read TTL.
func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		src:   src,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// RecordScore writes through to the underlying source and invalidates cached reads.
func (c *CachedSource) RecordScore(ctx context.Context, username string, wpm int) error {
	if err := c.src.RecordScore(ctx, username, wpm); err != nil {
		return err
	}
	c.cache.Flush()
	return nil
}

// GetTop returns the cached top-n if fresh, otherwise reads through.
func (c *CachedSource) GetTop(ctx context.Context, n int) ([]Entry, error) {
	key := fmt.Sprintf("top:%d", n)
	if val, found := c.cache.Get(key); found {
		if entries, ok := val.([]Entry); ok {
			return entries, nil
		}
	}

	entries, err := c.src.GetTop(ctx, n)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, entries, c.ttl)
	return entries, nil
}
