package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/gdl-bridge/api/handlers"
	"github.com/yourusername/gdl-bridge/api/middleware"
	"github.com/yourusername/gdl-bridge/internal/domain"
	"github.com/yourusername/gdl-bridge/pkg/logger"
)

// RouterConfig holds everything the HTTP router serves
type RouterConfig struct {
	Jobs           handlers.JobService
	Counter        handlers.JobCounter
	Repository     domain.JobRepository // optional, enables /history
	LogsDir        string
	StatusInterval time.Duration
	Logger         *zap.Logger
	MultiLogger    *logger.MultiLogger // optional
}

// SetupRouter sets up the HTTP router
func SetupRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	if config.MultiLogger != nil {
		router.Use(middleware.ErrorLog(config.MultiLogger))
	}

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(config.Counter, config.Repository)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(config.Jobs, log)
		v1.POST("/downloads", downloadHandler.Download)
		v1.GET("/summaries/:id", downloadHandler.GetSummary)

		statusHandler := handlers.NewStatusHandler(config.Jobs, config.StatusInterval, log)
		jobs := v1.Group("/jobs")
		{
			jobs.GET("/status", statusHandler.Status)
			jobs.GET("/status/ws", statusHandler.StatusWebSocket)
		}

		if config.Repository != nil {
			historyHandler := handlers.NewHistoryHandler(config.Repository, log)
			history := v1.Group("/history")
			{
				history.GET("", historyHandler.ListJobs)
				history.GET("/stats", historyHandler.GetStats)
				history.GET("/:run_id", historyHandler.GetJob)
			}
			v1.GET("/media/:hash/tags", historyHandler.GetMediaTags)
		}

		// Log endpoints
		if config.LogsDir != "" {
			logHandler := handlers.NewLogHandler(config.LogsDir)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/export", logHandler.ExportLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
