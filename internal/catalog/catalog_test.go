package catalog

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"semaphore/learning/internal/db"
	"semaphore/learning/internal/logger"
)

type countingCatalog struct {
	inner Catalog
	calls int
}

func (c *countingCatalog) ModuleCount(ctx context.Context, courseID string) (int, error) {
	c.calls++
	return c.inner.ModuleCount(ctx, courseID)
}

func TestStaticCatalog(t *testing.T) {
	courses := Static{"course-1": 6}
	count, err := courses.ModuleCount(context.Background(), "course-1")
	if err != nil || count != 6 {
		t.Fatalf("expected 6 modules, got %d err=%v", count, err)
	}
	if _, err := courses.ModuleCount(context.Background(), "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestCachedCatalogFallsBackWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	inner := &countingCatalog{inner: Static{"course-1": 4}}
	cached := NewCachedCatalog(inner, client, time.Minute, logger.NewNop())

	count, err := cached.ModuleCount(context.Background(), "course-1")
	if err != nil || count != 4 {
		t.Fatalf("expected fallback count 4, got %d err=%v", count, err)
	}
	if _, err := cached.ModuleCount(context.Background(), "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound through cache, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 underlying lookups, got %d", inner.calls)
	}
}

func TestCachedCatalogServesFromRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	courseID := uuid.NewString()
	defer client.Del(context.Background(), moduleCountKey(courseID))

	inner := &countingCatalog{inner: Static{courseID: 8}}
	cached := NewCachedCatalog(inner, client, time.Minute, logger.NewNop())
	for i := 0; i < 3; i++ {
		count, err := cached.ModuleCount(context.Background(), courseID)
		if err != nil || count != 8 {
			t.Fatalf("expected 8, got %d err=%v", count, err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single underlying lookup, got %d", inner.calls)
	}
}

func TestPostgresCatalog(t *testing.T) {
	url := os.Getenv("CATALOG_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CATALOG_TEST_DATABASE_URL not set")
	}
	// Temp tables are per connection, so pin the pool to one.
	if strings.Contains(url, "?") {
		url += "&pool_max_conns=1"
	} else {
		url += "?pool_max_conns=1"
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `CREATE TEMP TABLE courses (id text PRIMARY KEY, module_count int NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO courses (id, module_count) VALUES ('course-1', 5)`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	courses := NewPostgresCatalog(pool)
	count, err := courses.ModuleCount(ctx, "course-1")
	if err != nil || count != 5 {
		t.Fatalf("expected 5 modules, got %d err=%v", count, err)
	}
	if _, err := courses.ModuleCount(ctx, "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}
