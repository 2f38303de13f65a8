package api

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/powerpit/backend/internal/api/handlers"
	"github.com/powerpit/backend/internal/config"
	"github.com/powerpit/backend/internal/middleware"
	"github.com/powerpit/backend/internal/runs"
	"github.com/powerpit/backend/internal/ws"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	recorder := runs.NewRecorder(db, rdb)
	streamer := ws.NewStreamer(cfg.StreamBufferFrames, time.Duration(cfg.StreamIdleSeconds)*time.Second)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.POST("/auth/token", handlers.IssueToken(db, cfg))

		v1.GET("/simulations/:id/ws",
			middleware.WebSocketCORSCheck(cfg),
			handlers.StreamAuthMiddleware(cfg),
			handlers.SimulationWebSocket(recorder, streamer),
		)

		sims := v1.Group("/simulations", handlers.AuthMiddleware(cfg))
		{
			sims.POST("", handlers.CreateSimulation(recorder, cfg))
			sims.GET("", handlers.ListSimulations(recorder))
			sims.GET("/:id", handlers.GetSimulation(recorder))
		}
	}
}
