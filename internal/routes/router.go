package routes

import (
	"time"

	"checklist-tracker/internal/config"
	"checklist-tracker/internal/controller"
	"checklist-tracker/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(config.Get().AllowedOrigins)))
	router.Use(middleware.RequestID())

	api := router.Group("/api")
	api.GET("/health", controller.Health)
	api.GET("/ready", controller.Ready)

	// Public reads
	api.GET("/checklist", controller.GetChecklist)
	api.GET("/checklist/items", controller.GetItems)
	api.GET("/checklist/last-completions", controller.LastCompletions)
	api.GET("/checklist/calendar-summary", controller.CalendarSummary)
	api.GET("/summary/calendar", controller.CalendarSummary)

	// Writes: JWT required when JWT_SECRET is set
	writes := api.Group("")
	writes.Use(middleware.AuthMiddleware())
	{
		writes.POST("/checklist", controller.SaveChecklist)
		writes.POST("/checklist/toggle", controller.ToggleCheck)
		writes.POST("/checklist/photo", controller.AttachPhoto)
		writes.POST("/checklist/items", controller.SetItems)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
