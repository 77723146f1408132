package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fieldline/automation/pkg/trigger"
)

// NewDeduper picks the dedup backend. With a redis URL the window is shared
// across listener replicas; without one it is process local.
func NewDeduper(redisURL string) trigger.Deduper {
	if redisURL == "" {
		return trigger.NewMemoryDeduper()
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis URL: %w", err))
	}

	return trigger.NewRedisDeduper(redis.NewClient(options))
}
