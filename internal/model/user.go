package model

import "time"

// User mirrors the `users` table.  CreatedAt matters beyond auditing:
// it anchors the 30-day mission eligibility window for the user.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}

// Game mirrors the `games` table.  Games are reference data seeded by
// the platform; action events referencing an unknown game are dropped
// before the mission pipeline runs.
type Game struct {
	ID    uint64 // games.id
	Title string // games.title
}

// Reward mirrors the `rewards` table.  At most one row per user ever
// exists (uniqueness constraint on user_id); it is created once when
// all mission types are completed and never mutated.
type Reward struct {
	ID        uint64    // rewards.id
	UserID    uint64    // rewards.user_id
	Points    int       // rewards.points
	GrantedAt time.Time // rewards.granted_at
}

// RewardPoints is the fixed amount granted when a user completes all
// missions.
const RewardPoints = 777

// EligibilityWindow is how long after account creation a user keeps
// accumulating mission progress.
const EligibilityWindow = 30 * 24 * time.Hour
