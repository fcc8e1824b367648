package cache

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }

// flagCache is a plain per-user boolean flag with a TTL.  The
// initialization and eligibility caches are both instances of it.
type flagCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// IsSet reports whether the flag is present.  Errors count as unset.
func (f *flagCache) IsSet(ctx context.Context, userID uint64) bool {
	if f.rdb == nil {
		return false
	}
	n, err := f.rdb.Exists(ctx, f.prefix+formatID(userID)).Result()
	if err != nil {
		log.Printf("cache: %s check failed for user=%d: %v", f.prefix, userID, err)
		return false
	}
	return n > 0
}

// Set records the flag, best effort.
func (f *flagCache) Set(ctx context.Context, userID uint64) {
	if f.rdb == nil {
		return
	}
	if err := f.rdb.Set(ctx, f.prefix+formatID(userID), "1", f.ttl).Err(); err != nil {
		log.Printf("cache: %s set failed for user=%d: %v", f.prefix, userID, err)
	}
}

// InitializationCache remembers that a user's mission rows have been
// bulk-created, saving a wasted INSERT IGNORE round trip on every
// subsequent action command.
type InitializationCache struct{ flagCache }

func NewInitializationCache(rdb *redis.Client) *InitializationCache {
	return &InitializationCache{flagCache{rdb: rdb, prefix: "mission:init:", ttl: 30 * 24 * time.Hour}}
}

// EligibilityCache remembers that a user's 30-day mission window has
// been observed as expired.  Only the expired transition is cached;
// "eligible" is never cached because it changes with time.
type EligibilityCache struct{ flagCache }

func NewEligibilityCache(rdb *redis.Client) *EligibilityCache {
	return &EligibilityCache{flagCache{rdb: rdb, prefix: "user:expired:", ttl: 30 * 24 * time.Hour}}
}
