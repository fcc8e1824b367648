package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/example/game-missions/internal/cache"
	"github.com/example/game-missions/internal/config"
	"github.com/example/game-missions/internal/database"
	"github.com/example/game-missions/internal/handler"
	"github.com/example/game-missions/internal/queue"
	"github.com/example/game-missions/internal/repository"
	"github.com/example/game-missions/internal/router"
	"github.com/example/game-missions/internal/service"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	rl := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, running without caches, lock and rate limiting")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	games := repository.NewGameRepo(db)
	missions := repository.NewMissionRepo(db)
	actions := repository.NewActionRepo(db)
	rewards := repository.NewRewardRepo(db)

	// Advisory Redis state.
	completion := cache.NewCompletionCache(rdb)
	initFlag := cache.NewInitializationCache(rdb)
	expiredFlag := cache.NewEligibilityCache(rdb)
	lock := cache.NewLock(rdb)

	publisher := queue.NewPublisher(cfg.AMQPURL)

	// Services.
	initSvc := service.NewInitializationService(missions, initFlag)
	eligibility := service.NewEligibilityService(expiredFlag, users)
	coordinator := service.NewRewardCoordinator(missions, rewards, completion, lock, publisher)
	progress := service.NewProgressService(missions, actions, completion, coordinator)

	// Background consumers drive the mission pipeline off the broker.
	consumer := queue.NewConsumer(cfg.AMQPURL, users, games, eligibility, progress)
	consumer.Start()

	e := echo.New()
	router.RegisterRoutes(e, handler.NewGameHandler(games))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, initSvc, publisher))
	router.RegisterProtected(e,
		handler.NewActionHandler(users, games, initSvc, publisher),
		handler.NewMissionHandler(missions, rewards),
		cfg.JWTSecret, rdb, rl)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
