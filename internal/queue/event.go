// Package queue defines message payloads exchanged over the message
// broker and the queue names they travel on.
package queue

// Queue names.  One durable queue per user-action event plus the
// reward notification queue.
const (
	UserLoggedInQueue  = "user.logged-in"
	GameLaunchedQueue  = "game.launched"
	GamePlayedQueue    = "game.played"
	RewardGrantedQueue = "reward.granted"
)

// UserLoggedInEvent is published when the platform observes a user
// login.  LoginDate is the calendar day (YYYY-MM-DD) the login counts
// toward; together with UserID it is the duplicate-delivery key.
type UserLoggedInEvent struct {
	UserID     uint64 `json:"user_id"`
	LoginDate  string `json:"login_date"`
	OccurredAt int64  `json:"occurred_at"` // unix milliseconds
}

// GameLaunchedEvent is published when a user launches a game.  The
// (user, game) pair is the duplicate-delivery key.
type GameLaunchedEvent struct {
	UserID     uint64 `json:"user_id"`
	GameID     uint64 `json:"game_id"`
	OccurredAt int64  `json:"occurred_at"`
}

// GamePlayedEvent is published when a user finishes a play session.
// IdempotencyKey is supplied by the caller and, with UserID, is the
// duplicate-delivery key; events without one are rejected at intake
// and dropped by the consumer.
type GamePlayedEvent struct {
	UserID         uint64 `json:"user_id"`
	GameID         uint64 `json:"game_id"`
	Score          int    `json:"score"`
	IdempotencyKey string `json:"idempotency_key"`
	OccurredAt     int64  `json:"occurred_at"`
}

// RewardGrantedEvent is published after the one-time reward row has
// been created.  Delivery is at-least-once and best effort; downstream
// consumers must tolerate duplicates.
type RewardGrantedEvent struct {
	UserID     uint64 `json:"user_id"`
	Points     int    `json:"points"`
	OccurredAt int64  `json:"occurred_at"`
}
