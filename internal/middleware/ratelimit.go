package middleware

// ratelimit.go applies a fixed-window per-user rate limit on the action
// intake endpoints.  The counter lives in Redis so the limit holds
// across replicas.  When Redis is unavailable the middleware fails
// open: intake keeps working, only the throttle is lost.

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/example/game-missions/internal/config"
)

// RateLimit returns a middleware enforcing cfg.Limit requests per
// cfg.Window for each authenticated user.  With the limiter disabled or
// no Redis client configured, it is a pass-through.
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled || rdb == nil {
				return next(c)
			}
			uid, ok := UserID(c)
			if !ok {
				return next(c)
			}

			ctx := c.Request().Context()
			key := fmt.Sprintf("%s%d", cfg.Prefix, uid)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Printf("ratelimit: redis incr failed, allowing request: %v", err)
				return next(c)
			}
			if n == 1 {
				// First hit in the window owns the expiry.
				if err := rdb.Expire(ctx, key, cfg.Window).Err(); err != nil {
					log.Printf("ratelimit: redis expire failed: %v", err)
				}
			}
			if n > int64(cfg.Limit) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
