package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/api/handlers"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/api/middleware"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/auth"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/config"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/deploy"
)

// NewRouter creates and configures the Gin router
func NewRouter(
	cfg *config.Config,
	deployer handlers.Deployer,
	catalog deploy.CatalogReader,
	verifier *auth.Verifier,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Vessel catalog admin",
			"endpoints": []string{
				"GET /health",
				"GET /v1/vessels",
				"POST /v1/deployments/preview",
				"POST /v1/deployments",
				"GET /v1/deployments/:id/progress",
				"GET /v1/deployments/:id",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	idempotency := middleware.NewIdempotencyStore(cfg.Progress.Retention)

	// API v1 routes, admins only
	v1 := router.Group("/v1")
	v1.Use(middleware.RequireAdmin(verifier, logger))
	{
		v1.GET("/vessels", handlers.HandleListVessels(catalog, logger))

		deployments := v1.Group("/deployments")
		{
			deployments.POST("/preview", handlers.HandlePreviewDeployment(deployer, logger))
			deployments.POST("", middleware.IdempotencyMiddleware(idempotency, logger), handlers.HandleStartDeployment(deployer, idempotency, logger))
			deployments.GET("/:id/progress", handlers.HandleGetDeploymentProgress(deployer, logger))
			deployments.GET("/:id", handlers.HandleGetDeployment(deployer, logger))
		}
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
