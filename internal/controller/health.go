package controller

import (
	"context"
	"net/http"
	"time"

	"checklist-tracker/internal/cache"
	"checklist-tracker/internal/database"

	"github.com/gin-gonic/gin"
)

// Health returns 200 if the process is alive.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready returns 200 if the database is reachable. Redis is optional and only reported.
func Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	db := database.DB(ctx)
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	if err := db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "cache": cache.Client(ctx) != nil})
}
