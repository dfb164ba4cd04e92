package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/app"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/config"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/metrics"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/middleware"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/pipeline"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.WithField("component", "api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger, false)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	dispatcher, local := a.Dispatcher()
	svc := pipeline.NewService(a.Pipeline, a.Deps, dispatcher, logger)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	go limiter.Cleanup(ctx)

	gin.SetMode(gin.ReleaseMode)
	api := &API{
		svc:            svc,
		health:         a.DB.Health,
		logger:         logger,
		maxUploadBytes: cfg.Server.MaxUploadBytes,
	}
	middlewares := []gin.HandlerFunc{middleware.RequestLogger(logger), middleware.RateLimit(limiter)}
	if a.Cache != nil {
		middlewares = append(middlewares, middleware.SharedRateLimit(a.Cache, int64(cfg.Server.RateLimitRPS)*60, time.Minute))
	}
	router := setupRouter(api, middlewares...)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s (dispatcher: %s)", addr, cfg.Pipeline.Dispatcher)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr("Metrics server forced to shutdown", err)
		}
	}

	// Stages running in-process keep their lease until they finish
	if local != nil {
		done := make(chan struct{})
		go func() {
			local.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warnf("Stages still running at shutdown: %d", len(local.Active()))
		}
	}

	logger.Info("Server stopped")
}
