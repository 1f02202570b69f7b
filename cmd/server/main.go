package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/ebulku/xtream-player/internal/cache"
	"github.com/ebulku/xtream-player/internal/config"
	"github.com/ebulku/xtream-player/internal/database"
	"github.com/ebulku/xtream-player/internal/handler"
	"github.com/ebulku/xtream-player/internal/iptv"
	"github.com/ebulku/xtream-player/internal/middleware"
	"github.com/ebulku/xtream-player/internal/queue"
	"github.com/ebulku/xtream-player/internal/repository"
	"github.com/ebulku/xtream-player/internal/router"
	queue_publisher "github.com/ebulku/xtream-player/internal/service"
)

func main() {
	// Load .env if present; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis backs rate limiting and the active-profile cache. A nil client
	// disables both features; the service still works against MySQL alone.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}
	profileCache := cache.NewProfileCache(rdb, config.LoadCacheConfig())

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	verifier := iptv.NewClient(cfg.VerifyTimeout)

	authHandler := handler.NewAuthHandler(cfg, users, tokens, profiles, profileCache)
	profileHandler := handler.NewProfileHandler(cfg, profiles, verifier, profileCache,
		queue_publisher.PublishProfileActivated)

	e := echo.New() // Create Echo instance
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e) // Health check
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterProfiles(e, profileHandler, cfg.JWTSecret)

	// Background consumer that logs profile activations; it maintains its
	// own reconnect loop and never takes the server down.
	go func() {
		if err := queue.StartActivationConsumer(); err != nil {
			log.Printf("activation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
