package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/powerpit/backend/internal/physics"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "powerpit-api",
		"version":   version,
		"tick_rate": physics.TickRate,
		"uptime":    time.Since(startTime).String(),
	})
}
