package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/anonqa/internal/api/admin"
	"github.com/liliang-cn/anonqa/internal/api/ai"
	"github.com/liliang-cn/anonqa/internal/api/middleware"
	"github.com/liliang-cn/anonqa/internal/api/qa"
	"github.com/liliang-cn/anonqa/internal/config"
	"github.com/liliang-cn/anonqa/internal/realtime"
	"github.com/liliang-cn/anonqa/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey string
	CORS   config.CORSConfig
}

// SetupRouter sets up the Gin router
func SetupRouter(
	qaService *service.QAService,
	aiService *service.AIService,
	adminService *service.AdminService,
	hub *realtime.Hub,
	cfg RouterConfig,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	// CORS middleware
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live group events
	r.GET("/ws", hub.ServeWS)

	api := r.Group("/api")

	// Q&A API (public, private groups gated by X-Group-Password)
	qa.NewHandler(qaService).RegisterRoutes(api)

	// AI API (public, quota gated per client)
	ai.NewHandler(aiService).RegisterRoutes(api.Group("/ai"))

	// Admin API (requires API key)
	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.Auth(cfg.APIKey))
	admin.NewHandler(adminService).RegisterRoutes(adminGroup)

	return r
}
