package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liliang-cn/anonqa/internal/api"
	"github.com/liliang-cn/anonqa/internal/config"
	"github.com/liliang-cn/anonqa/internal/realtime"
	"github.com/liliang-cn/anonqa/internal/repository"
	"github.com/liliang-cn/anonqa/internal/service"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	groupRepo := repository.NewGroupRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// Realtime: one registry per process, shared by the hub and the broadcaster
	registry := realtime.NewRegistry(logger.Named("registry"))
	emitter := realtime.NewEmitter(realtime.NewBroadcaster(registry, logger.Named("broadcast")))

	generator := service.NewOpenAIGenerator(cfg.LLM)
	if !generator.Configured() {
		logger.Warn("llm.api_key not set, AI endpoints will report the service as not configured")
	}

	// Initialize services
	qaService := service.NewQAService(groupRepo, questionRepo, answerRepo, emitter, logger.Named("qa"))
	// private rooms are joined with the group password
	hub := realtime.NewHub(registry, qaService, cfg.Realtime, logger.Named("hub"))
	aiService := service.NewAIService(cfg, groupRepo, questionRepo, usageRepo, generator, logger.Named("ai"))
	adminService := service.NewAdminService(groupRepo, questionRepo, answerRepo, usageRepo, hub)

	if cfg.Admin.APIKey == "" {
		logger.Warn("admin.api_key not set, admin API is disabled")
	}

	// Setup router
	router := api.SetupRouter(qaService, aiService, adminService, hub, api.RouterConfig{
		APIKey: cfg.Admin.APIKey,
		CORS:   cfg.Server.CORS,
	}, logger)

	// Create HTTP server. No write timeout: completion streams and websockets
	// run longer than any sensible fixed deadline and set their own.
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Shutdown does not track hijacked connections
	srv.RegisterOnShutdown(hub.Close)

	// Start server in goroutine
	go func() {
		logger.Info("Starting anonqa server",
			zap.String("address", cfg.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
			zap.Bool("ai_enabled", generator.Configured()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
