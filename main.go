package main

import (
	"context"
	"fmt"
	"os"

	"payledger/pkg/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var jwtSecret []byte // loaded from config (env JWT_SECRET, fallback to dev default)

func main() {
	logging.Init()
	defer logging.Sync()

	var err error
	cfg, err = loadConfig()
	if err != nil {
		logging.Fatal("config load failed", zap.Error(err))
	}
	jwtSecret = []byte(cfg.JWTSecret)

	// Support a lightweight migrate command: `./payledger migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()

	// Cache is best effort: the server runs without Redis, just slower and
	// without login rate limiting.
	if err := initCache(context.Background()); err != nil {
		logging.Warn("redis unavailable, cache disabled", zap.Error(err))
	}

	events = newEventBus()
	registerCacheInvalidation(events)
	events.Start(context.Background())

	r := gin.Default()
	r.Use(requestLogger())

	setupRoutes(r)

	logging.Info("listening", zap.String("port", cfg.Port), zap.String("public_url", cfg.PublicURL))
	if err := r.Run(":" + cfg.Port); err != nil {
		logging.Fatal("server exited", zap.Error(err))
	}
}
