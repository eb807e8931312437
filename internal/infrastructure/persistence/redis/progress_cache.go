package redis

import (
	"context"
	"errors"
	"time"

	"github.com/signalschool/practice-hub/internal/application/query"
)

// ProgressCache caches assembled progress views. It satisfies
// query.ProgressCache (read side) and command.CacheInvalidator (write
// side): recording a practice event drops the key, the next read
// repopulates it.
type ProgressCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewProgressCache creates a ProgressCache. A non-positive ttl falls
// back to TTLProgressView.
func NewProgressCache(cache *Cache, ttl time.Duration) *ProgressCache {
	if ttl <= 0 {
		ttl = TTLProgressView
	}
	return &ProgressCache{cache: cache, ttl: ttl}
}

// ProgressKey returns the cache key for a learner's progress view.
func ProgressKey(learnerID string) string {
	return PrefixProgress + learnerID
}

// GetProgress returns the cached view, or (nil, nil) on a miss.
// A miss is not an error: the caller rebuilds from the database.
func (c *ProgressCache) GetProgress(ctx context.Context, learnerID string) (*query.ProgressView, error) {
	var view query.ProgressView
	err := c.cache.Get(ctx, ProgressKey(learnerID), &view)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &view, nil
}

// SetProgress stores a progress view with the configured TTL.
func (c *ProgressCache) SetProgress(ctx context.Context, learnerID string, view *query.ProgressView) error {
	if view == nil {
		return nil
	}
	return c.cache.Set(ctx, ProgressKey(learnerID), view, c.ttl)
}

// InvalidateProgress drops the cached view for a learner.
func (c *ProgressCache) InvalidateProgress(ctx context.Context, learnerID string) error {
	return c.cache.Delete(ctx, ProgressKey(learnerID), PrefixAchievements+learnerID)
}
