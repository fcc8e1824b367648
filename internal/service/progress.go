package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/example/game-missions/internal/model"
	"github.com/example/game-missions/internal/repository"
)

// maxUpdateAttempts bounds the optimistic-concurrency retry loop: a
// version conflict reloads and recomputes up to this many times before
// the conflict is surfaced to the caller for broker redelivery.
const maxUpdateAttempts = 3

// ProgressService runs the per-event mission pipeline.  Every public
// operation is the same template with mission-type-specific wiring:
//
//	completion-cache fast path -> dedup fact insert -> fresh recompute
//	-> transactional optimistic update -> retry on conflict
//	-> best-effort cache mark -> reward check
//
// The reward check runs on every path, including cache hits and
// duplicate deliveries: a prior delivery may have completed the last
// mission and crashed before granting, or another mission type may
// have completed concurrently.
type ProgressService struct {
	missions   MissionStore
	actions    ActionRecorder
	completion CompletionCache
	reward     *RewardCoordinator

	now func() time.Time
}

// NewProgressService wires the pipeline.  reward must be non-nil; it is
// invoked after every processed event.
func NewProgressService(missions MissionStore, actions ActionRecorder, completion CompletionCache, reward *RewardCoordinator) *ProgressService {
	return &ProgressService{
		missions:   missions,
		actions:    actions,
		completion: completion,
		reward:     reward,
		now:        time.Now,
	}
}

// ProcessLogin advances the consecutive-login mission for a login on
// the given calendar day.  Progress is the streak length ending at
// that day, recomputed from the login fact table.
func (s *ProgressService) ProcessLogin(ctx context.Context, userID uint64, date time.Time) error {
	return s.processMission(ctx, userID, model.ConsecutiveLogin,
		func(ctx context.Context) (bool, error) {
			return s.actions.RecordLogin(ctx, userID, date)
		},
		func(ctx context.Context) (int, error) {
			return s.actions.CountConsecutiveLoginDays(ctx, userID, date)
		},
		nil,
	)
}

// ProcessGameLaunch advances the different-games mission.  Progress is
// the distinct count of games the user has launched.
func (s *ProgressService) ProcessGameLaunch(ctx context.Context, userID, gameID uint64) error {
	return s.processMission(ctx, userID, model.DifferentGames,
		func(ctx context.Context) (bool, error) {
			return s.actions.RecordGameLaunch(ctx, userID, gameID)
		},
		func(ctx context.Context) (int, error) {
			return s.actions.CountDistinctGamesLaunched(ctx, userID)
		},
		nil,
	)
}

// ProcessGamePlay advances the play-score mission.  Progress is the
// sum of recorded scores; completion additionally requires at least
// three recorded sessions, so a single huge score cannot finish the
// mission on its own.
func (s *ProgressService) ProcessGamePlay(ctx context.Context, userID, gameID uint64, score int, idempotencyKey string) error {
	return s.processMission(ctx, userID, model.PlayScore,
		func(ctx context.Context) (bool, error) {
			return s.actions.RecordGamePlay(ctx, userID, gameID, score, idempotencyKey)
		},
		func(ctx context.Context) (int, error) {
			return s.actions.SumPlayScores(ctx, userID)
		},
		func(ctx context.Context) (bool, error) {
			n, err := s.actions.CountPlaySessions(ctx, userID)
			return n >= 3, err
		},
	)
}

// processMission is the shared pipeline.  recordFact attempts the
// idempotent fact insert and reports whether the fact was new;
// recompute returns the authoritative progress value; guard, when
// non-nil, is the extra completion predicate evaluated alongside
// target-reached.
func (s *ProgressService) processMission(
	ctx context.Context,
	userID uint64,
	t model.MissionType,
	recordFact func(context.Context) (bool, error),
	recompute func(context.Context) (int, error),
	guard func(context.Context) (bool, error),
) error {
	if s.completion.IsCompleted(ctx, userID, t) {
		log.Printf("progress: mission already completed (cached) user=%d type=%s, checking reward", userID, t)
		return s.reward.TryGrant(ctx, userID)
	}

	wasNew, err := recordFact(ctx)
	if err != nil {
		return err
	}
	if !wasNew {
		log.Printf("progress: duplicate record user=%d type=%s, skipping update", userID, t)
		return s.reward.TryGrant(ctx, userID)
	}

	completed, err := s.updateWithRetry(ctx, userID, t, recompute, guard)
	if err != nil {
		return err
	}

	if completed {
		s.completion.MarkCompleted(ctx, userID, t)
	}
	return s.reward.TryGrant(ctx, userID)
}

// updateWithRetry runs the load -> recompute -> advance -> CAS-save
// cycle, retrying the whole cycle on version conflicts.  Returns
// whether this call transitioned the mission to completed.
func (s *ProgressService) updateWithRetry(
	ctx context.Context,
	userID uint64,
	t model.MissionType,
	recompute func(context.Context) (int, error),
	guard func(context.Context) (bool, error),
) (bool, error) {
	for attempt := 1; ; attempt++ {
		var completedNow bool
		_, err := s.missions.Update(ctx, userID, t, func(m *model.Mission) (bool, error) {
			completedNow = false
			if m.Completed {
				return false, nil
			}
			newProgress, err := recompute(ctx)
			if err != nil {
				return false, err
			}
			canComplete := newProgress >= m.Target
			if canComplete && guard != nil {
				ok, err := guard(ctx)
				if err != nil {
					return false, err
				}
				canComplete = ok
			}
			wasCompleted := m.Completed
			changed := m.AdvanceProgress(newProgress, canComplete, s.now())
			completedNow = m.Completed && !wasCompleted
			return changed, nil
		})
		switch {
		case err == nil:
			return completedNow, nil
		case errors.Is(err, repository.ErrMissionNotFound):
			// Missions are created lazily at intake; an event racing
			// ahead of initialization simply makes no progress.
			return false, nil
		case errors.Is(err, repository.ErrConcurrencyConflict):
			if attempt >= maxUpdateAttempts {
				log.Printf("progress: update failed after %d attempts user=%d type=%s", maxUpdateAttempts, userID, t)
				return false, err
			}
			log.Printf("progress: version conflict, retrying (%d/%d) user=%d type=%s", attempt, maxUpdateAttempts, userID, t)
		default:
			return false, err
		}
	}
}
