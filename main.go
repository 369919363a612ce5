package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kaiwa/middleware"
	"kaiwa/pkg/cache"
	"kaiwa/pkg/chat"
	"kaiwa/pkg/config"
	"kaiwa/pkg/services"
	"kaiwa/pkg/store"
	"kaiwa/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	st, err := store.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	var responder services.Responder
	if cfg.IsGeminiEnabled {
		responder = services.NewGeminiResponder(cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		log.Printf("[main] gemini disabled, using local responder")
		responder = services.NewLocalResponder()
	}

	window := chat.NewHistoryWindow(st, cfg.HistoryLimit)
	pipe := chat.NewPipeline(st, window, responder)

	limiter := middleware.NewRateLimiter(
		time.Duration(cfg.RateLimitWindowSeconds)*time.Second,
		cfg.RateLimitCapacity,
	)
	guard := middleware.NewDuplicateGuard(
		cache.New(500),
		time.Duration(cfg.DuplicateWindowSeconds)*time.Second,
	)

	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, pipe, st, limiter, guard)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
