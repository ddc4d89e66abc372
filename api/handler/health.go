package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetHealth returns a handler for GET /healthz.
func GetHealth(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
		})
	}
}
