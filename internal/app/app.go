// Package app wires configuration into the pipeline's collaborators.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/cache"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/config"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/database"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/llm"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/media"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/queue"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/storage"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/tracing"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/transcription"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/translation"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/webhook"
)

const notifyClientTimeout = 10 * time.Second

// App holds the long-lived resources shared by the API and the worker
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	DB       *database.DB
	Cache    *cache.Cache
	Queue    *queue.Queue
	Pipeline pipeline.Config
	Deps     pipeline.Dependencies
	Runner   *pipeline.Runner

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// New connects every configured backend. The queue is opened when
// needQueue is set or the dispatcher is amqp.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, needQueue bool) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Pipeline: pipeline.ConfigFrom(cfg)}

	if err := a.init(ctx, needQueue || cfg.Pipeline.Dispatcher == "amqp"); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, withQueue bool) error {
	cfg := a.Config
	if err := requireSharedLeases(cfg, withQueue); err != nil {
		return err
	}

	tracer, err := tracing.Init(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, tracer)

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, closerFunc(func() error { db.Close(); return nil }))

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	a.Deps = pipeline.Dependencies{
		Store:   database.NewProjectRepository(db, a.Logger),
		Media:   media.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath, cfg.Media.Timeout),
		Fetcher: media.NewDownloader(nil, cfg.Pipeline.DownloadConcurrency),
		Transcriber: transcription.NewClient(transcription.Config{
			BaseURL: cfg.Transcription.BaseURL,
			APIKey:  cfg.Transcription.APIKey,
			Model:   cfg.Transcription.Model,
			Timeout: cfg.Transcription.Timeout,
		}, nil),
		Locker: pipeline.NewMemoryLocker(),
	}

	generator, err := llm.NewGenerator(ctx, llm.Config{
		Provider: cfg.Generation.Provider,
		BaseURL:  cfg.Generation.BaseURL,
		APIKey:   cfg.Generation.APIKey,
		Model:    cfg.Generation.Model,
		Timeout:  cfg.Generation.Timeout,
	})
	if err != nil {
		return err
	}
	if c, ok := generator.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	a.Deps.Generator = generator

	translator, err := translation.New(ctx, translation.Config{
		APIKey:  cfg.Translation.APIKey,
		Timeout: cfg.Translation.Timeout,
	})
	if err != nil {
		return err
	}
	if _, passthrough := translator.(translation.Passthrough); passthrough {
		a.Logger.Warn("No translation API key configured, translations will pass text through unchanged")
	}
	a.Deps.Translator = translator

	if cfg.Redis.Enabled {
		c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Cache = c
		a.closers = append(a.closers, c)
		a.Deps.Cache = c
		a.Deps.Locker = cache.NewLeaseStore(c)
	}

	if cfg.Storage.Enabled {
		mirror, err := storage.New(cfg.Storage, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.Deps.Mirror = mirror
	}

	if len(cfg.Webhook.URLs) > 0 {
		a.Deps.Notifier = webhook.NewNotifier(cfg.Webhook.URLs, cfg.Webhook.Secret, &http.Client{Timeout: notifyClientTimeout}, a.Logger)
	}

	if withQueue {
		q, err := queue.New(cfg.Queue, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to queue: %w", err)
		}
		a.Queue = q
		a.closers = append(a.closers, q)
	}

	a.Runner = pipeline.NewRunner(a.Pipeline, a.Deps, a.Logger)
	return nil
}

// requireSharedLeases refuses queue-carried stages without redis. The API takes
// a project lease that the worker releases, so both must see the same store.
func requireSharedLeases(cfg *config.Config, withQueue bool) error {
	if withQueue && !cfg.Redis.Enabled {
		return fmt.Errorf("stage tasks sent through the queue require redis.enabled for shared project leases")
	}
	return nil
}

// Dispatcher returns the configured task dispatcher. The local dispatcher is
// returned as its concrete type so callers can wait for it on shutdown.
func (a *App) Dispatcher() (pipeline.Dispatcher, *pipeline.LocalDispatcher) {
	if a.Config.Pipeline.Dispatcher == "amqp" && a.Queue != nil {
		return a.Queue, nil
	}
	local := pipeline.NewLocalDispatcher(a.Runner, a.Logger)
	return local, local
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Warnf("Failed to close resource: %v", err)
		}
	}
	a.closers = nil
}
