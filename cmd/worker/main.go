package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/app"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/config"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/metrics"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/queue"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

const queueDepthInterval = 15 * time.Second

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
	logger = logger.WithField("component", "worker")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	// The queue runs each task detached from ctx, so a started stage finishes
	// during shutdown and its lease is released.
	handler := func(ctx context.Context, task *models.StageTask) error {
		logger.WithTaskID(task.ID).WithProjectID(task.ProjectID).WithStage(task.Stage).Info("Processing stage task")
		return a.Runner.Run(ctx, task)
	}

	logger.Infof("Worker started with concurrency %d, waiting for stage tasks...", cfg.Pipeline.WorkerConcurrency)
	if err := a.Queue.ConsumeTasks(ctx, cfg.Pipeline.WorkerConcurrency, handler); err != nil {
		logger.Fatalf("Failed to consume tasks: %v", err)
	}

	go reportQueueDepth(ctx, a.Queue, logger)

	// Wait for shutdown
	<-ctx.Done()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer waitCancel()
	if err := a.Queue.Wait(waitCtx); err != nil {
		logger.Warn("Stage tasks still running at shutdown")
	}
	logger.Info("Worker stopped")
}

func reportQueueDepth(ctx context.Context, q *queue.Queue, logger *logging.Logger) {
	ticker := time.NewTicker(queueDepthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if depth, err := q.GetQueueDepth(); err == nil {
				metrics.UpdateQueueDepth(queue.StageQueueName, depth)
			} else {
				logger.Warnf("Failed to inspect queue depth: %v", err)
			}
			if depth, err := q.GetDLQDepth(); err == nil {
				metrics.UpdateQueueDepth(queue.DeadLetterQueueName, depth)
			}
		}
	}
}
