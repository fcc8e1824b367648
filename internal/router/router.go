package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/example/game-missions/internal/config"
	"github.com/example/game-missions/internal/handler"
	"github.com/example/game-missions/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, games *handler.GameHandler) {
	// Health endpoint for load balancers and monitoring.
	e.GET("/healthz", handler.Health)
	// Games are public reference data.
	e.GET("/v1/games", games.List)
}

// RegisterAuth registers the register/login endpoints under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterProtected registers the authenticated surface: action intake
// under /v1/actions (rate limited per user) and the mission/reward read
// endpoints.
func RegisterProtected(e *echo.Echo, act *handler.ActionHandler, mis *handler.MissionHandler, jwtSecret string, rdb *redis.Client, rl config.RateLimitConfig) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	actions := auth.Group("/actions")
	actions.Use(middleware.RateLimit(rdb, rl))
	actions.POST("/login", act.Login)
	actions.POST("/launch", act.Launch)
	actions.POST("/play", act.Play)

	auth.GET("/missions", mis.List)
	auth.GET("/reward", mis.Reward)
}
