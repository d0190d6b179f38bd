package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	postHandler := NewPostHandler(services, log)
	pageHandler := NewPageHandler(services, log)
	taxonomyHandler := NewTaxonomyHandler(services, log)
	subscriberHandler := NewSubscriberHandler(services, log)
	importHandler := NewImportHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services))

	v1 := router.Group("/v1")

	// Public subscription endpoints, linked from the blog and from emails
	public := v1.Group("/subscribers")
	{
		public.POST("", subscriberHandler.Subscribe)
		public.GET("/confirm", subscriberHandler.Confirm)
		public.GET("/unsubscribe", subscriberHandler.Unsubscribe)
		public.POST("/unsubscribe", subscriberHandler.Unsubscribe)
	}

	admin := v1.Group("", adminAuthMiddleware(cfg.Admin.Token))
	{
		admin.GET("/subscribers", subscriberHandler.List)

		posts := admin.Group("/posts")
		{
			posts.GET("", postHandler.List)
			posts.POST("", postHandler.Create)
			posts.POST("/notify", postHandler.Notify)
			posts.GET("/:id", postHandler.Get)
			posts.PUT("/:id", postHandler.Update)
		}

		pages := admin.Group("/pages")
		{
			pages.GET("", pageHandler.List)
			pages.POST("", pageHandler.Create)
			pages.GET("/:id", pageHandler.Get)
			pages.PUT("/:id", pageHandler.Update)
		}

		admin.GET("/categories", taxonomyHandler.ListCategories)
		admin.POST("/categories", taxonomyHandler.CreateCategory)
		admin.GET("/tags", taxonomyHandler.ListTags)
		admin.POST("/tags", taxonomyHandler.CreateTag)
		admin.GET("/page-categories", taxonomyHandler.ListPageCategories)
		admin.POST("/page-categories", taxonomyHandler.CreatePageCategory)

		// Import endpoints
		imports := admin.Group("/imports")
		{
			imports.POST("", importHandler.CreateImport)
			imports.GET("/:job_id", importHandler.GetImportStatus)
			imports.GET("/:job_id/errors", importHandler.GetImportErrors)
		}

		// Export endpoints
		admin.GET("/exports", exportHandler.StreamExport)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "blog-cms-api",
	})
}

// metricsHandler returns content counts
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		postsCount, _ := services.Export.GetCount(ctx, "posts")
		pagesCount, _ := services.Export.GetCount(ctx, "pages")
		commentsCount, _ := services.Export.GetCount(ctx, "comments")
		subscribersCount, _ := services.Export.GetCount(ctx, "subscribers")

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"posts":       postsCount,
				"pages":       pagesCount,
				"comments":    commentsCount,
				"subscribers": subscribersCount,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// adminAuthMiddleware requires "Authorization: Bearer <token>". An empty
// token leaves the admin routes open.
func adminAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
