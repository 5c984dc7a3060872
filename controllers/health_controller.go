package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nimblevision/database"
)

// HealthCheck reports process and database liveness
func HealthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"success":   true,
		"message":   "Server is running",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := database.Ping(); err != nil {
		log.Warn().Err(err).Msg("Health check: database unreachable")
		status = http.StatusServiceUnavailable
		body["success"] = false
		body["database"] = "disconnected"
	}

	c.JSON(status, body)
}
