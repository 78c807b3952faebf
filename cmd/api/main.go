package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freelancehub/app-indexer/internal/app"
	"github.com/freelancehub/app-indexer/internal/config"
	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/middleware"
	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/freelancehub/app-indexer/docs"
)

// @title           App Indexer API
// @version         1.0
// @description     Operator API for the marketplace search indexer. Triggers bulk reindexes, reports the last reindex outcome and exposes queue statistics.

// @contact.name   Platform Team

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

// @tag.name admin
// @tag.description Reindex and queue operations

// @tag.name health
// @tag.description Health check operations

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logging.Logger.Sync()

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize observability
	if err := observability.InitTracer("app-indexer-api"); err != nil {
		logging.Logger.Error("failed to initialize tracer", zap.Error(err))
	}
	defer observability.ShutdownTracer()

	ctx := context.Background()
	components, err := app.New(ctx, config.AppConfig)
	if err != nil {
		logging.Logger.Fatal("failed to initialize components", zap.Error(err))
	}
	defer components.Close(ctx)

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if config.AppConfig.AdminAPIKey == "" {
		logging.Logger.Warn("ADMIN_API_KEY is not set, admin routes are unauthenticated")
	}

	// Create router with middleware
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestTracing(),
		middleware.RequestLogger(),
		middleware.RequestTracker(),
		cors.Default(),
	)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	components.Handler().RegisterRoutes(router.Group("/v1"), config.AppConfig.AdminAPIKey)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create server with timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.AppConfig.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Logger.Info("starting server",
			zap.Int("port", config.AppConfig.Port),
			zap.String("environment", config.AppConfig.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logging.Logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Error("server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("server exited gracefully")
}
