package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/game-missions/internal/repository"
)

// GameHandler exposes the games reference data so clients know which
// ids are valid in action notifications.
type GameHandler struct {
	Games *repository.GameRepo
}

func NewGameHandler(g *repository.GameRepo) *GameHandler { return &GameHandler{Games: g} }

type gameResp struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

// List returns all known games.
func (h *GameHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	games, err := h.Games.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]gameResp, 0, len(games))
	for _, g := range games {
		out = append(out, gameResp{ID: g.ID, Title: g.Title})
	}
	return c.JSON(http.StatusOK, echo.Map{"games": out})
}
