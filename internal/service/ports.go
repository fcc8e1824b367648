// Package service holds the mission-progress pipeline, the reward
// coordinator, the eligibility gate and mission initialization.  The
// interfaces below are the ports the services consume; the repository
// and cache packages provide the production implementations and tests
// substitute fakes.
package service

import (
	"context"
	"time"

	"github.com/example/game-missions/internal/model"
)

// MissionStore is the persistence port for mission aggregates.
type MissionStore interface {
	// FindByUser returns all mission rows for a user.
	FindByUser(ctx context.Context, userID uint64) ([]model.Mission, error)
	// CreateAllIfAbsent bulk-inserts missions, skipping existing
	// (user, type) pairs.
	CreateAllIfAbsent(ctx context.Context, missions []model.Mission) error
	// Update loads the (user, type) mission inside one transaction,
	// applies mutate, and persists with an expected-version
	// compare-and-swap when mutate reports a change.  It returns
	// repository.ErrConcurrencyConflict when a concurrent writer
	// persisted first and repository.ErrMissionNotFound when the row
	// does not exist.
	Update(ctx context.Context, userID uint64, t model.MissionType,
		mutate func(m *model.Mission) (bool, error)) (model.Mission, error)
}

// ActionRecorder is the port for idempotent fact inserts and the
// authoritative recomputation queries behind each mission type.
type ActionRecorder interface {
	RecordLogin(ctx context.Context, userID uint64, date time.Time) (bool, error)
	RecordGameLaunch(ctx context.Context, userID, gameID uint64) (bool, error)
	RecordGamePlay(ctx context.Context, userID, gameID uint64, score int, idempotencyKey string) (bool, error)

	CountConsecutiveLoginDays(ctx context.Context, userID uint64, asOf time.Time) (int, error)
	CountDistinctGamesLaunched(ctx context.Context, userID uint64) (int, error)
	SumPlayScores(ctx context.Context, userID uint64) (int, error)
	CountPlaySessions(ctx context.Context, userID uint64) (int, error)
}

// RewardStore is the uniqueness-guarded reward persistence port.
type RewardStore interface {
	GrantIfAbsent(ctx context.Context, userID uint64, points int) (bool, error)
}

// CompletionCache is the advisory completion-flag port.  All methods
// are fail-open: reads report a miss on error, writes are best effort.
type CompletionCache interface {
	IsCompleted(ctx context.Context, userID uint64, t model.MissionType) bool
	MarkCompleted(ctx context.Context, userID uint64, t model.MissionType)
	IsAllCompleted(ctx context.Context, userID uint64) bool
	MarkAllCompleted(ctx context.Context, userID uint64)
}

// FlagCache is a per-user advisory boolean flag (initialization,
// known-expired).  Fail-open like CompletionCache.
type FlagCache interface {
	IsSet(ctx context.Context, userID uint64) bool
	Set(ctx context.Context, userID uint64)
}

// Locker is a single-attempt lease lock; retry policy belongs to the
// caller.  A false return means the lock was not acquired and the
// action did not run.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttlSeconds int64, action func() error) (bool, error)
}

// RewardNotifier publishes the reward-granted event.  Failures are
// logged and swallowed by the coordinator: the grant row is the
// correctness guarantee, not the notification.
type RewardNotifier interface {
	NotifyRewardGranted(ctx context.Context, userID uint64, points int) error
}

// UserLookup resolves a user's creation timestamp for the eligibility
// window check.  Implementations return repository.ErrUserNotFound for
// unknown ids.
type UserLookup interface {
	GetCreatedAt(ctx context.Context, userID uint64) (time.Time, error)
}
