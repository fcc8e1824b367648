package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// unlockScript releases a lock only when the stored token still belongs
// to the caller, so a holder whose lease expired cannot delete a lock
// someone else has since acquired.
var unlockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Lock is a lease-based distributed mutual exclusion primitive over
// Redis: SET NX with a TTL writes a random owner token, and release
// compares that token before deleting.  The bounded lease means a
// crashed holder cannot block a key forever.
//
// TryWithLock is a single attempt; retry and backoff policy belongs to
// the caller.  The lock is used to reduce redundant concurrent work,
// never as a correctness guarantee.
type Lock struct {
	rdb *redis.Client
}

// NewLock returns a Lock over rdb, which may be nil; with no Redis the
// action runs unserialized, the same fail-open stance as the caches.
func NewLock(rdb *redis.Client) *Lock { return &Lock{rdb: rdb} }

// TryWithLock runs action while holding the named lock and returns
// true.  When the lock is already held it returns false without
// running the action.  When Redis is unavailable the action runs
// without serialization; blocking it would turn an advisory lock into
// a hard dependency.  The lock is released on return; if the lease
// expired mid-action the release is a no-op.
func (l *Lock) TryWithLock(ctx context.Context, key string, ttlSeconds int64, action func() error) (bool, error) {
	if l.rdb == nil {
		return true, action()
	}
	token, err := randomToken(16)
	if err != nil {
		return true, action()
	}
	acquired, err := l.rdb.SetNX(ctx, key, token, time.Duration(ttlSeconds)*time.Second).Result()
	if err != nil {
		log.Printf("lock: acquire %q failed, proceeding without lock: %v", key, err)
		return true, action()
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if err := unlockScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
			log.Printf("lock: release %q failed: %v", key, err)
		}
	}()
	return true, action()
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
