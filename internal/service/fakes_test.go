package service

import (
	"context"
	"time"

	"github.com/example/game-missions/internal/model"
	"github.com/example/game-missions/internal/repository"
)

// Hand-written fakes for the service ports.  State lives in plain maps
// and the tests inspect it directly; no mocking framework.

type fakeMissionStore struct {
	missions map[model.MissionType]*model.Mission

	// conflicts injects this many ErrConcurrencyConflict results on
	// Update before writes start succeeding again.
	conflicts   int
	updateCalls int
}

func newFakeMissionStore(missions ...model.Mission) *fakeMissionStore {
	s := &fakeMissionStore{missions: make(map[model.MissionType]*model.Mission)}
	for i := range missions {
		m := missions[i]
		s.missions[m.Type] = &m
	}
	return s
}

func (s *fakeMissionStore) FindByUser(ctx context.Context, userID uint64) ([]model.Mission, error) {
	out := make([]model.Mission, 0, len(s.missions))
	for _, t := range model.AllMissionTypes() {
		if m, ok := s.missions[t]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeMissionStore) CreateAllIfAbsent(ctx context.Context, missions []model.Mission) error {
	for i := range missions {
		m := missions[i]
		if _, ok := s.missions[m.Type]; !ok {
			s.missions[m.Type] = &m
		}
	}
	return nil
}

func (s *fakeMissionStore) Update(ctx context.Context, userID uint64, t model.MissionType,
	mutate func(m *model.Mission) (bool, error)) (model.Mission, error) {

	s.updateCalls++
	stored, ok := s.missions[t]
	if !ok {
		return model.Mission{}, repository.ErrMissionNotFound
	}
	work := *stored
	changed, err := mutate(&work)
	if err != nil {
		return model.Mission{}, err
	}
	if changed && s.conflicts > 0 {
		s.conflicts--
		return model.Mission{}, repository.ErrConcurrencyConflict
	}
	if changed {
		work.Version++
		*stored = work
	}
	return work, nil
}

type fakeActions struct {
	recordNew bool
	recordErr error

	streak   int
	distinct int
	scoreSum int
	sessions int

	recordCalls int
}

func (a *fakeActions) record() (bool, error) {
	a.recordCalls++
	return a.recordNew, a.recordErr
}

func (a *fakeActions) RecordLogin(ctx context.Context, userID uint64, date time.Time) (bool, error) {
	return a.record()
}
func (a *fakeActions) RecordGameLaunch(ctx context.Context, userID, gameID uint64) (bool, error) {
	return a.record()
}
func (a *fakeActions) RecordGamePlay(ctx context.Context, userID, gameID uint64, score int, idempotencyKey string) (bool, error) {
	return a.record()
}

func (a *fakeActions) CountConsecutiveLoginDays(ctx context.Context, userID uint64, asOf time.Time) (int, error) {
	return a.streak, nil
}
func (a *fakeActions) CountDistinctGamesLaunched(ctx context.Context, userID uint64) (int, error) {
	return a.distinct, nil
}
func (a *fakeActions) SumPlayScores(ctx context.Context, userID uint64) (int, error) {
	return a.scoreSum, nil
}
func (a *fakeActions) CountPlaySessions(ctx context.Context, userID uint64) (int, error) {
	return a.sessions, nil
}

type fakeCompletion struct {
	completed    map[model.MissionType]bool
	allCompleted bool
}

func newFakeCompletion() *fakeCompletion {
	return &fakeCompletion{completed: make(map[model.MissionType]bool)}
}

func (c *fakeCompletion) IsCompleted(ctx context.Context, userID uint64, t model.MissionType) bool {
	return c.completed[t]
}
func (c *fakeCompletion) MarkCompleted(ctx context.Context, userID uint64, t model.MissionType) {
	c.completed[t] = true
}
func (c *fakeCompletion) IsAllCompleted(ctx context.Context, userID uint64) bool {
	return c.allCompleted
}
func (c *fakeCompletion) MarkAllCompleted(ctx context.Context, userID uint64) {
	c.allCompleted = true
}

type fakeFlag struct {
	set map[uint64]bool
}

func newFakeFlag() *fakeFlag { return &fakeFlag{set: make(map[uint64]bool)} }

func (f *fakeFlag) IsSet(ctx context.Context, userID uint64) bool { return f.set[userID] }
func (f *fakeFlag) Set(ctx context.Context, userID uint64)        { f.set[userID] = true }

// fakeLock replays a scripted sequence of acquisition outcomes; once
// the script is exhausted every further attempt acquires.
type fakeLock struct {
	denials  int
	attempts int
}

func (l *fakeLock) TryWithLock(ctx context.Context, key string, ttlSeconds int64, action func() error) (bool, error) {
	l.attempts++
	if l.denials > 0 {
		l.denials--
		return false, nil
	}
	return true, action()
}

type fakeRewards struct {
	granted  map[uint64]bool
	grantErr error
}

func newFakeRewards() *fakeRewards {
	return &fakeRewards{granted: make(map[uint64]bool)}
}

func (r *fakeRewards) GrantIfAbsent(ctx context.Context, userID uint64, points int) (bool, error) {
	if r.grantErr != nil {
		return false, r.grantErr
	}
	if r.granted[userID] {
		return false, nil
	}
	r.granted[userID] = true
	return true, nil
}

type fakeNotifier struct {
	calls int
	err   error
}

func (n *fakeNotifier) NotifyRewardGranted(ctx context.Context, userID uint64, points int) error {
	n.calls++
	return n.err
}

type fakeUsers struct {
	createdAt map[uint64]time.Time
}

func (u *fakeUsers) GetCreatedAt(ctx context.Context, userID uint64) (time.Time, error) {
	at, ok := u.createdAt[userID]
	if !ok {
		return time.Time{}, repository.ErrUserNotFound
	}
	return at, nil
}

// testMission builds an active mission for type t with the registry
// target and a far-future expiry.
func testMission(userID uint64, t model.MissionType) model.Mission {
	return model.NewMission(userID, t, time.Now().Add(365*24*time.Hour))
}

// quietCoordinator returns a coordinator whose lock always acquires and
// whose sleep is a no-op, for progress tests that only care that the
// reward check ran.
func quietCoordinator(missions MissionStore, rewards RewardStore, completion CompletionCache, notifier RewardNotifier) *RewardCoordinator {
	c := NewRewardCoordinator(missions, rewards, completion, &fakeLock{}, notifier)
	c.sleep = func(time.Duration) {}
	return c
}
