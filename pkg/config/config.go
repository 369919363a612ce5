package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs, loaded once in main and passed
// down explicitly. No package keeps ambient globals.
type Config struct {
	AppEnv       string
	IsStaging    bool
	IsProduction bool
	Port         string

	// Durable store. Driver is "sqlite" or "mysql"; DSN is a file path for
	// sqlite, a full DSN for mysql (credentials ride inside the DSN).
	StoreDriver string
	StoreDSN    string

	GeminiAPIKey    string
	GeminiModel     string
	IsGeminiEnabled bool

	// Bound on how many prior messages are handed to the responder.
	HistoryLimit int

	// Runtime tunables for the HTTP surface.
	RateLimitWindowSeconds int
	RateLimitCapacity      int
	DuplicateWindowSeconds int
}

// Load reads the environment (plus .env outside production) and validates it.
func Load() (*Config, error) {
	appEnv := os.Getenv("APP_ENV")

	// do not load .env file in production
	if appEnv != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("[config] no .env loaded: %v", err)
		}
		appEnv = os.Getenv("APP_ENV")
	}

	if !slices.Contains([]string{"staging", "production"}, appEnv) {
		return nil, fmt.Errorf("APP_ENV must be 'staging' or 'production', got %q", appEnv)
	}

	cfg := &Config{
		AppEnv:       appEnv,
		IsStaging:    appEnv == "staging",
		IsProduction: appEnv == "production",
		Port:         os.Getenv("PORT"),

		StoreDriver: os.Getenv("STORE_DRIVER"),
		StoreDSN:    os.Getenv("STORE_DSN"),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		IsGeminiEnabled: os.Getenv("IS_GEMINI_ENABLED") == "1",

		HistoryLimit:           atoiOr(os.Getenv("HISTORY_LIMIT"), 12),
		RateLimitWindowSeconds: atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10),
		RateLimitCapacity:      atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 5),
		DuplicateWindowSeconds: atoiOr(os.Getenv("DUPLICATE_WINDOW_SECONDS"), 45),
	}

	if cfg.Port == "" {
		cfg.Port = "5000"
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "sqlite"
	}
	if !slices.Contains([]string{"sqlite", "mysql"}, cfg.StoreDriver) {
		return nil, fmt.Errorf("STORE_DRIVER must be 'sqlite' or 'mysql', got %q", cfg.StoreDriver)
	}
	if cfg.StoreDSN == "" {
		if cfg.StoreDriver == "mysql" {
			return nil, fmt.Errorf("STORE_DSN must be set for the mysql driver")
		}
		cfg.StoreDSN = "app.db"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.IsGeminiEnabled && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set when IS_GEMINI_ENABLED=1")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 12
	}

	log.Printf("[config] AppEnv=%s IsStaging=%v IsProduction=%v", cfg.AppEnv, cfg.IsStaging, cfg.IsProduction)
	log.Printf("[config] StoreDriver=%s IsGeminiEnabled=%v GeminiModel=%s", cfg.StoreDriver, cfg.IsGeminiEnabled, cfg.GeminiModel)
	log.Printf("[config] HistoryLimit=%d RateLimit window=%ds capacity=%d dupWindow=%ds",
		cfg.HistoryLimit, cfg.RateLimitWindowSeconds, cfg.RateLimitCapacity, cfg.DuplicateWindowSeconds)

	return cfg, nil
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
