package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/example/game-missions/internal/model"
	"github.com/example/game-missions/internal/repository"
)

// EligibilityService gates the pipeline on the user's 30-day mission
// window.  The known-expired flag is cached; the eligible state never
// is, because it flips with the passage of time.
type EligibilityService struct {
	expired FlagCache
	users   UserLookup

	now func() time.Time
}

// NewEligibilityService wires the gate.
func NewEligibilityService(expired FlagCache, users UserLookup) *EligibilityService {
	return &EligibilityService{expired: expired, users: users, now: time.Now}
}

// IsEligible reports whether mission tracking is still active for the
// user.  Cache errors count as a miss and a user absent from the
// store counts as eligible: this gate fails open, and reference
// validation upstream is what rejects unknown users.
func (s *EligibilityService) IsEligible(ctx context.Context, userID uint64) (bool, error) {
	if s.expired.IsSet(ctx, userID) {
		log.Printf("eligibility: user=%d expired (cached)", userID)
		return false, nil
	}

	createdAt, err := s.users.GetCreatedAt(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return true, nil
		}
		return false, err
	}
	if createdAt.Add(model.EligibilityWindow).Before(s.now()) {
		log.Printf("eligibility: user=%d registered > 30 days ago, marking expired", userID)
		s.expired.Set(ctx, userID)
		return false, nil
	}
	return true, nil
}
