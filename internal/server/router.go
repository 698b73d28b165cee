package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/recallhq/recall/internal/handlers"
)

type RouterConfig struct {
	Mode           string
	AllowedOrigins []string
	ChatHandler    *handlers.ChatHandler
	IngestHandler  *handlers.IngestHandler
	SessionHandler *handlers.SessionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if strings.EqualFold(cfg.Mode, "release") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Cors
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Chat transport
	router.GET("/ws/:session_id", cfg.ChatHandler.Connect)

	api := router.Group("/api")
	{
		api.POST("/ingest", cfg.IngestHandler.Ingest)
		api.GET("/sessions/:session_id/summary", cfg.SessionHandler.Summary)
		api.GET("/sessions/:session_id/state", cfg.SessionHandler.State)
		api.GET("/sessions/:session_id/events", cfg.SessionHandler.Events)
	}

	return router
}
