package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the HTTP routes. Everything under /api/v1 requires
// a verified bearer token.
func NewRouter(logger *slog.Logger, handlers *Handlers, jwtSecret []byte) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	router.GET("/healthz", Healthz)

	v1 := router.Group("/api/v1")
	v1.Use(RequireAuth(jwtSecret))
	{
		v1.POST("/uploads", handlers.Upload)
		v1.GET("/uploads", handlers.History)
		v1.GET("/uploads/:id", handlers.Snapshot)

		v1.GET("/settings", handlers.GetSettings)
		v1.PUT("/settings", handlers.PutSettings)
		v1.DELETE("/settings", handlers.DeleteSettings)
	}

	return router
}
