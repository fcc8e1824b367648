// Package cache implements the Redis-backed advisory state of the
// mission service: completion flags, initialization flags, the expired
// user flag and the per-user reward lock.
//
// Every cache here is strictly a performance optimization.  This
// package is the single fail-open boundary for cache errors: reads
// that fail report a miss, writes that fail are swallowed after
// logging.  Callers never see a cache error, so no Redis outage can
// change the final persisted state, only the number of trips to the
// authoritative store.  A nil Redis client is accepted everywhere and
// behaves like an always-empty cache.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/game-missions/internal/model"
)

// allCompletedMember is the sentinel set member recording that the
// whole mission set is done and the reward path may short-circuit.
const allCompletedMember = "__ALL__"

const completionTTL = 30 * 24 * time.Hour

// CompletionCache tracks which mission types a user has completed as a
// Redis set under one key per user, with the __ALL__ sentinel marking
// the all-completed fast path for the reward coordinator.
type CompletionCache struct {
	rdb *redis.Client
}

// NewCompletionCache returns a CompletionCache over rdb, which may be
// nil to disable caching.
func NewCompletionCache(rdb *redis.Client) *CompletionCache {
	return &CompletionCache{rdb: rdb}
}

func (c *CompletionCache) key(userID uint64) string {
	return "mission:completed:" + formatID(userID)
}

// IsCompleted reports whether the per-type completion flag is cached.
// Errors count as a miss.
func (c *CompletionCache) IsCompleted(ctx context.Context, userID uint64, t model.MissionType) bool {
	if c.rdb == nil {
		return false
	}
	ok, err := c.rdb.SIsMember(ctx, c.key(userID), string(t)).Result()
	if err != nil {
		log.Printf("cache: completion check failed for user=%d type=%s: %v", userID, t, err)
		return false
	}
	return ok
}

// MarkCompleted records the per-type completion flag, best effort.
func (c *CompletionCache) MarkCompleted(ctx context.Context, userID uint64, t model.MissionType) {
	c.mark(ctx, userID, string(t))
}

// IsAllCompleted reports whether the all-completed sentinel is cached.
// Errors count as a miss.
func (c *CompletionCache) IsAllCompleted(ctx context.Context, userID uint64) bool {
	if c.rdb == nil {
		return false
	}
	ok, err := c.rdb.SIsMember(ctx, c.key(userID), allCompletedMember).Result()
	if err != nil {
		log.Printf("cache: all-completed check failed for user=%d: %v", userID, err)
		return false
	}
	return ok
}

// MarkAllCompleted records the all-completed sentinel, best effort.
func (c *CompletionCache) MarkAllCompleted(ctx context.Context, userID uint64) {
	c.mark(ctx, userID, allCompletedMember)
}

func (c *CompletionCache) mark(ctx context.Context, userID uint64, member string) {
	if c.rdb == nil {
		return
	}
	key := c.key(userID)
	pipe := c.rdb.TxPipeline()
	pipe.SAdd(ctx, key, member)
	pipe.Expire(ctx, key, completionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("cache: mark %q failed for user=%d: %v", member, userID, err)
	}
}
