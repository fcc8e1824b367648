package service

import (
	"context"
	"time"

	"github.com/example/game-missions/internal/model"
)

// InitializationService lazily creates a user's full mission set the
// first time the platform sees a command for them.  The bulk insert is
// idempotent (insert-if-absent per pair); the init flag just avoids
// paying for that round trip on every subsequent command.
type InitializationService struct {
	missions MissionStore
	initFlag FlagCache
}

// NewInitializationService wires the service.
func NewInitializationService(missions MissionStore, initFlag FlagCache) *InitializationService {
	return &InitializationService{missions: missions, initFlag: initFlag}
}

// EnsureMissionsExist creates any missing mission rows for the user,
// all expiring at expiredAt (user creation + the eligibility window).
func (s *InitializationService) EnsureMissionsExist(ctx context.Context, userID uint64, expiredAt time.Time) error {
	if s.initFlag.IsSet(ctx, userID) {
		return nil
	}

	types := model.AllMissionTypes()
	missions := make([]model.Mission, 0, len(types))
	for _, t := range types {
		missions = append(missions, model.NewMission(userID, t, expiredAt))
	}
	if err := s.missions.CreateAllIfAbsent(ctx, missions); err != nil {
		return err
	}

	s.initFlag.Set(ctx, userID)
	return nil
}
