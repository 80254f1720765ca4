package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"semaphore/learning/internal/logger"
)

// CachedCatalog is a read-through Redis cache in front of another Catalog.
// Only successful lookups are cached. Redis failures degrade to the
// underlying catalog.
type CachedCatalog struct {
	next  Catalog
	redis *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedCatalog(next Catalog, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedCatalog{
		next:  next,
		redis: client,
		ttl:   ttl,
		log:   log.With("component", "catalog_cache"),
	}
}

func (c *CachedCatalog) ModuleCount(ctx context.Context, courseID string) (int, error) {
	key := moduleCountKey(courseID)
	value, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		if count, convErr := strconv.Atoi(value); convErr == nil {
			return count, nil
		}
		c.log.Warn("Discarding malformed cached module count", "course_id", courseID, "value", value)
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("Catalog cache read failed", "course_id", courseID, "error", err)
	}

	count, err := c.next.ModuleCount(ctx, courseID)
	if err != nil {
		return 0, err
	}
	if err := c.redis.Set(ctx, key, strconv.Itoa(count), c.ttl).Err(); err != nil {
		c.log.Warn("Catalog cache write failed", "course_id", courseID, "error", err)
	}
	return count, nil
}

func moduleCountKey(courseID string) string {
	return fmt.Sprintf("catalog:modules:%s", courseID)
}
