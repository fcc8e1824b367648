package model

import "time"

// MissionType identifies one of the fixed behavioural goals tracked for
// every user.  The set is closed: missions are not configurable at
// runtime and no rule engine sits behind them.  Each type carries a
// numeric target and a human-readable description via the registry
// below.
type MissionType string

const (
	// ConsecutiveLogin requires logging in on N consecutive days.
	ConsecutiveLogin MissionType = "CONSECUTIVE_LOGIN"
	// DifferentGames requires launching N distinct games.
	DifferentGames MissionType = "DIFFERENT_GAMES"
	// PlayScore requires a cumulative play score reaching the target,
	// with an additional minimum-session guard applied by the
	// progress pipeline.
	PlayScore MissionType = "PLAY_SCORE"
)

// MissionSpec holds the per-type constants.  Target is the progress
// value at which the mission may complete.
type MissionSpec struct {
	Target      int
	Description string
}

// missionSpecs is the registry of all known mission types.  Lookup
// happens through SpecFor and AllMissionTypes so callers never branch
// on the tag themselves.
var missionSpecs = map[MissionType]MissionSpec{
	ConsecutiveLogin: {Target: 3, Description: "Log in for 3 consecutive days"},
	DifferentGames:   {Target: 3, Description: "Launch at least 3 different games"},
	PlayScore:        {Target: 1000, Description: "Play at least 3 game sessions with combined score of 1,000"},
}

// missionTypeOrder fixes the iteration order for bulk creation and
// API responses.
var missionTypeOrder = []MissionType{ConsecutiveLogin, DifferentGames, PlayScore}

// AllMissionTypes returns every mission type in a stable order.
func AllMissionTypes() []MissionType {
	out := make([]MissionType, len(missionTypeOrder))
	copy(out, missionTypeOrder)
	return out
}

// MissionTypeCount is the size of the full mission set for one user.
func MissionTypeCount() int { return len(missionTypeOrder) }

// SpecFor returns the registry entry for a mission type.  The second
// return value is false for unknown types.
func SpecFor(t MissionType) (MissionSpec, bool) {
	s, ok := missionSpecs[t]
	return s, ok
}

// Mission is the per-(user, mission type) progress aggregate.  The
// pair (UserID, Type) is the natural key; ID is the surrogate row key.
// Version is the optimistic-concurrency token: it increments once per
// persisted mutation and is compared on save.
//
// State machine: Active -> Completed (terminal) or Active -> Expired
// (terminal).  Completed is a one-way latch; once set, Progress and
// CompletedAt are frozen.  Past ExpiredAt the row freezes entirely,
// even if a recomputed progress value would satisfy the target.
type Mission struct {
	ID          uint64      // missions.id
	UserID      uint64      // missions.user_id
	Type        MissionType // missions.mission_type
	Progress    int         // missions.progress
	Target      int         // missions.target
	Completed   bool        // missions.completed
	CompletedAt *time.Time  // missions.completed_at (nullable)
	ExpiredAt   time.Time   // missions.expired_at
	Version     int         // missions.version
}

// NewMission builds a fresh, untracked mission for a user with zero
// progress and the registry target.  expiredAt is fixed at creation
// (user creation + the eligibility window) and never moves.
func NewMission(userID uint64, t MissionType, expiredAt time.Time) Mission {
	spec := missionSpecs[t]
	return Mission{
		UserID:    userID,
		Type:      t,
		Target:    spec.Target,
		ExpiredAt: expiredAt,
	}
}

// IsExpired reports whether the mission window has closed at the
// given instant.
func (m *Mission) IsExpired(now time.Time) bool {
	return !m.ExpiredAt.IsZero() && now.After(m.ExpiredAt)
}

// AdvanceProgress applies a freshly recomputed progress value.  It is
// pure and deterministic: callers supply the authoritative newProgress
// (never an increment) and an externally derived canComplete guard.
// Progress is monotonic; a lower newProgress is ignored.  When
// canComplete holds and the target is reached, the completion latch
// flips and CompletedAt is stamped with now.  Returns true when the
// call changed the mission, so callers can skip a no-op persist.
func (m *Mission) AdvanceProgress(newProgress int, canComplete bool, now time.Time) bool {
	if m.Completed || m.IsExpired(now) {
		return false
	}
	changed := false
	if newProgress > m.Progress {
		m.Progress = newProgress
		changed = true
	}
	if canComplete && m.Progress >= m.Target {
		m.Completed = true
		at := now
		m.CompletedAt = &at
		changed = true
	}
	return changed
}
