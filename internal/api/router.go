package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/omars-lab/knowledge-agents/internal/streamstatus"
)

// NewRouter builds the gin engine with the same middleware ordering the
// teacher uses (gin.New, gin.Logger, gin.Recovery, trace/request-id, CORS)
// before registering the note query routes.
func NewRouter(handler *Handler, broadcaster *streamstatus.Broadcaster, log *logrus.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-Id"}
	corsConfig.ExposeHeaders = []string{
		"X-Request-Id", "X-Model-Name", "X-Api-Type", "X-Generation-Time-Seconds",
		"X-Input-Tokens", "X-Output-Tokens", "X-Total-Tokens",
	}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1/notes")
	v1.Use(bearerAuth())
	v1.POST("/query", handler.QueryNotes)

	router.GET("/api/v1/notes/stream/:request_id", handler.StreamStage(broadcaster))

	return router
}
