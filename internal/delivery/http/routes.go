package http

import (
	"github.com/gin-gonic/gin"

	"github.com/productlens/backend/config"
	"github.com/productlens/backend/internal/logger"
	"github.com/productlens/backend/internal/metrics"
)

// SetupRouter creates and configures the Gin router. m may be nil, which
// leaves /metrics unregistered.
func SetupRouter(cfg *config.Config, handler *Handler, log logger.Logger, m *metrics.Metrics) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(log))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	limited := router.Group("/", RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		limited.GET("/search", handler.SearchProducts)
		limited.GET("/search/:itemQuery", handler.SearchProducts)

		// paths used by the web client
		api := limited.Group("/api/searchProduct")
		{
			api.GET("", handler.SearchProducts)
			api.GET("/:itemQuery", handler.SearchProducts)
		}
	}

	return router
}
