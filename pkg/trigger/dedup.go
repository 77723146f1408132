package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses duplicate run requests for the same workflow and
// entity inside a time window.
type Deduper interface {
	// FirstSeen reports whether key is new within the window. A false
	// result means a duplicate that should be dropped.
	FirstSeen(ctx context.Context, key string, window time.Duration) (bool, error)
}

const dedupKeyPrefix = "fieldline:dedup:"

// RedisDeduper shares the dedup window across listener replicas.
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKeyPrefix+key, "1", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}

	return ok, nil
}

// MemoryDeduper is the single-process fallback when no redis is configured.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, key string, window time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	if expires, ok := d.seen[key]; ok && now.Before(expires) {
		return false, nil
	}

	d.seen[key] = now.Add(window)

	// Opportunistic cleanup keeps the map from growing unbounded.
	for k, expires := range d.seen {
		if now.After(expires) {
			delete(d.seen, k)
		}
	}

	return true, nil
}
