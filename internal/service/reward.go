package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/game-missions/internal/model"
)

const (
	rewardLockTTLSeconds  = 10
	rewardLockMaxAttempts = 3
	rewardLockRetryDelay  = 200 * time.Millisecond
)

// ErrLockNotAcquired is returned when the per-user reward lock could
// not be acquired within the bounded retries.  It is a retryable
// condition: the triggering message should be redelivered.
var ErrLockNotAcquired = errors.New("reward lock not acquired")

// RewardCoordinator grants the one-time reward when a user has
// completed every mission type.  Exactly-once comes from the
// uniqueness-guarded insert in the reward store; the per-user lock
// only serializes the read-then-insert sequence so bursts of
// concurrent completions do not stampede the mission store.
type RewardCoordinator struct {
	missions   MissionStore
	rewards    RewardStore
	completion CompletionCache
	lock       Locker
	notifier   RewardNotifier

	sleep func(time.Duration)
}

// NewRewardCoordinator wires the coordinator.
func NewRewardCoordinator(missions MissionStore, rewards RewardStore, completion CompletionCache, lock Locker, notifier RewardNotifier) *RewardCoordinator {
	return &RewardCoordinator{
		missions:   missions,
		rewards:    rewards,
		completion: completion,
		lock:       lock,
		notifier:   notifier,
		sleep:      time.Sleep,
	}
}

// TryGrant checks whether the user has completed all missions and, if
// so, grants the reward.  Safe to call after every event: the
// all-completed cache short-circuits the common case, and the guarded
// insert makes redundant invocations harmless.  Returns
// ErrLockNotAcquired when lock retries are exhausted.
func (c *RewardCoordinator) TryGrant(ctx context.Context, userID uint64) error {
	if c.completion.IsAllCompleted(ctx, userID) {
		return nil
	}

	lockKey := fmt.Sprintf("lock:reward:%d", userID)
	for attempt := 1; attempt <= rewardLockMaxAttempts; attempt++ {
		acquired, err := c.lock.TryWithLock(ctx, lockKey, rewardLockTTLSeconds, func() error {
			return c.grantIfAllCompleted(ctx, userID)
		})
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		log.Printf("reward: lock busy for user=%d, attempt %d/%d", userID, attempt, rewardLockMaxAttempts)
		if attempt < rewardLockMaxAttempts {
			c.sleep(time.Duration(attempt) * rewardLockRetryDelay)
		}
	}
	return fmt.Errorf("user %d: %w", userID, ErrLockNotAcquired)
}

// grantIfAllCompleted runs inside the lock: re-read every mission,
// bail unless the full set exists and is completed, then insert the
// grant.  The re-read is required: the caller's view may be stale by
// the time the lock is held.
func (c *RewardCoordinator) grantIfAllCompleted(ctx context.Context, userID uint64) error {
	missions, err := c.missions.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(missions) < model.MissionTypeCount() {
		return nil
	}
	for _, m := range missions {
		if !m.Completed {
			return nil
		}
	}

	granted, err := c.rewards.GrantIfAbsent(ctx, userID, model.RewardPoints)
	if err != nil {
		return err
	}
	if !granted {
		log.Printf("reward: already granted for user=%d, skipping event", userID)
	} else {
		// The grant row is committed; a failed publish must not undo
		// it.  At-least-once (or missed) notification is acceptable.
		if err := c.notifier.NotifyRewardGranted(ctx, userID, model.RewardPoints); err != nil {
			log.Printf("reward: granted but event publish failed for user=%d: %v", userID, err)
		} else {
			log.Printf("reward: granted and event dispatched for user=%d", userID)
		}
	}

	c.completion.MarkAllCompleted(ctx, userID)
	return nil
}
