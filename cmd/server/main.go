package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/powerpit/backend/internal/api"
	"github.com/powerpit/backend/internal/config"
	"github.com/powerpit/backend/internal/database"
	"github.com/powerpit/backend/internal/migrations"
	"github.com/powerpit/backend/internal/redis"
	"github.com/powerpit/backend/internal/runs"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(context.Background(), cfg.RedisURL, 5*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Mark runs orphaned by a crashed process as FAILED.
	runs.NewRecorder(db, rdb).StartReaper(context.Background(),
		time.Duration(cfg.ReaperPollSeconds)*time.Second,
		time.Duration(cfg.StaleRunMinutes)*time.Minute)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, db, rdb, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Power Pit server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
