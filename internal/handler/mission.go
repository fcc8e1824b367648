package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/game-missions/internal/middleware"
	"github.com/example/game-missions/internal/model"
	"github.com/example/game-missions/internal/repository"
)

// MissionHandler serves the read side: a user's mission board and their
// reward, straight from the store.  Reads never consult the caches; the
// rows are the source of truth.
type MissionHandler struct {
	Missions *repository.MissionRepo
	Rewards  *repository.RewardRepo
}

func NewMissionHandler(m *repository.MissionRepo, r *repository.RewardRepo) *MissionHandler {
	return &MissionHandler{Missions: m, Rewards: r}
}

type missionResp struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Progress    int        `json:"progress"`
	Target      int        `json:"target"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiredAt   time.Time  `json:"expired_at"`
}

type rewardResp struct {
	Points    int       `json:"points"`
	GrantedAt time.Time `json:"granted_at"`
}

// List returns the authenticated user's missions.  Users whose mission
// set has not been initialized yet see an empty list.
func (h *MissionHandler) List(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	missions, err := h.Missions.FindByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]missionResp, 0, len(missions))
	for _, m := range missions {
		desc := ""
		if spec, ok := model.SpecFor(m.Type); ok {
			desc = spec.Description
		}
		out = append(out, missionResp{
			Type:        string(m.Type),
			Description: desc,
			Progress:    m.Progress,
			Target:      m.Target,
			Completed:   m.Completed,
			CompletedAt: m.CompletedAt,
			ExpiredAt:   m.ExpiredAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"missions": out})
}

// Reward returns the user's granted reward, or 404 while it has not
// been earned.
func (h *MissionHandler) Reward(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rw, err := h.Rewards.FindByUser(ctx, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no reward granted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, rewardResp{Points: rw.Points, GrantedAt: rw.GrantedAt})
}
