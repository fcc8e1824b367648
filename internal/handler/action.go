package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/game-missions/internal/middleware"
	"github.com/example/game-missions/internal/model"
	"github.com/example/game-missions/internal/queue"
	"github.com/example/game-missions/internal/repository"
	"github.com/example/game-missions/internal/service"
)

// ActionHandler accepts user-action notifications and turns them into
// broker events.  Intake is write-ack: the broker confirm is awaited
// before the 202 goes out, so an accepted notification is durably
// queued even if processing happens later.  Handlers never touch
// mission rows directly; the consumer owns the pipeline.
type ActionHandler struct {
	Users     *repository.UserRepo
	Games     *repository.GameRepo
	Init      *service.InitializationService
	Publisher *queue.Publisher
}

func NewActionHandler(u *repository.UserRepo, g *repository.GameRepo, init *service.InitializationService, pub *queue.Publisher) *ActionHandler {
	return &ActionHandler{Users: u, Games: g, Init: init, Publisher: pub}
}

type loginActionReq struct {
	Date string `json:"date"` // YYYY-MM-DD, defaults to today (UTC)
}
type launchActionReq struct {
	GameID uint64 `json:"game_id"`
}
type playActionReq struct {
	GameID         uint64 `json:"game_id"`
	Score          int    `json:"score"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Login reports a login for a calendar day (default today).  The
// explicit date lets clients backfill a login observed elsewhere.
func (h *ActionHandler) Login(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req loginActionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	date := time.Now().UTC().Format("2006-01-02")
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		date = parsed.Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	h.ensureMissions(ctx, uid)
	ev := queue.UserLoggedInEvent{UserID: uid, LoginDate: date, OccurredAt: time.Now().UnixMilli()}
	if err := h.Publisher.PublishUserLoggedIn(ctx, ev); err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "event not accepted"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
}

// Launch reports that the user started a game.
func (h *ActionHandler) Launch(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req launchActionReq
	if err := c.Bind(&req); err != nil || req.GameID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "game_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if ok, resp := h.requireGame(c, ctx, req.GameID); !ok {
		return resp
	}
	h.ensureMissions(ctx, uid)
	ev := queue.GameLaunchedEvent{UserID: uid, GameID: req.GameID, OccurredAt: time.Now().UnixMilli()}
	if err := h.Publisher.PublishGameLaunched(ctx, ev); err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "event not accepted"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
}

// Play reports a finished play session.  The idempotency key (from the
// X-Idempotency-Key header or the body) is the duplicate-delivery key;
// a blank one is rejected because without it a redelivered session
// would double-count its score.
func (h *ActionHandler) Play(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req playActionReq
	if err := c.Bind(&req); err != nil || req.GameID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "game_id required"})
	}
	if req.Score < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "score must be >= 0"})
	}
	key := strings.TrimSpace(c.Request().Header.Get("X-Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}
	if key == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "idempotency key required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if ok, resp := h.requireGame(c, ctx, req.GameID); !ok {
		return resp
	}
	h.ensureMissions(ctx, uid)
	ev := queue.GamePlayedEvent{
		UserID:         uid,
		GameID:         req.GameID,
		Score:          req.Score,
		IdempotencyKey: key,
		OccurredAt:     time.Now().UnixMilli(),
	}
	if err := h.Publisher.PublishGamePlayed(ctx, ev); err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "event not accepted"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
}

// ensureMissions lazily creates the user's mission set before the
// first event is queued.  Failure is logged but does not block intake:
// the consumer tolerates missing rows and a later intake retries the
// creation.
func (h *ActionHandler) ensureMissions(ctx context.Context, uid uint64) {
	createdAt, err := h.Users.GetCreatedAt(ctx, uid)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("action: load user=%d failed: %v", uid, err)
		}
		return
	}
	if err := h.Init.EnsureMissionsExist(ctx, uid, createdAt.Add(model.EligibilityWindow)); err != nil {
		log.Printf("action: mission setup failed for user=%d: %v", uid, err)
	}
}

// requireGame validates the game reference.  When the check fails it
// writes the error response and returns ok=false.
func (h *ActionHandler) requireGame(c echo.Context, ctx context.Context, gameID uint64) (bool, error) {
	exists, err := h.Games.Exists(ctx, gameID)
	if err != nil {
		return false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !exists {
		return false, c.JSON(http.StatusNotFound, echo.Map{"error": "unknown game"})
	}
	return true, nil
}
