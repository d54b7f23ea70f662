package main

import (
	"context"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weheartit/whi-url-fetcher/config"
	"github.com/weheartit/whi-url-fetcher/handler"
	"github.com/weheartit/whi-url-fetcher/handler/platforms"
	httpadapter "github.com/weheartit/whi-url-fetcher/internal/adapters/http"
	"github.com/weheartit/whi-url-fetcher/internal/service"
	"github.com/weheartit/whi-url-fetcher/internal/sink"
	"github.com/weheartit/whi-url-fetcher/internal/worker"
	"github.com/weheartit/whi-url-fetcher/observability"
	"github.com/weheartit/whi-url-fetcher/observability/logger"
	"github.com/weheartit/whi-url-fetcher/observability/metrics"
	"github.com/weheartit/whi-url-fetcher/storage"
	"github.com/weheartit/whi-url-fetcher/storage/fs"
	"github.com/weheartit/whi-url-fetcher/storage/s3"
)

func main() {
	cfg := loadConfiguration()

	deps := initializeDependencies(cfg)

	h := buildHandler(cfg, deps)

	startPlatform(cfg, deps, h)
}

// Dependencies holds the initialized infrastructure components
type Dependencies struct {
	logger  observability.Logger
	metrics observability.Metrics
	storage storage.ObjectStorage
	fetcher *service.FetchService
}

// loadConfiguration loads and validates the application configuration
func loadConfiguration() *config.Config {
	config.MustLoad()
	return config.MustGet()
}

// initializeDependencies sets up logging, metrics, storage, and the
// fetch service
func initializeDependencies(cfg *config.Config) *Dependencies {
	logCfg := logger.Config{
		ServiceName: cfg.ServiceName,
		Level:       cfg.LogLevel,
		Pretty:      !cfg.IsProduction(),
	}
	appLogger := logger.New(logCfg, "app")
	appMetrics := metrics.New(cfg.ServiceName, prometheus.DefaultRegisterer)

	appLogger.Info(context.Background(), "Starting application", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
	})

	store := initializeStorage(cfg, logCfg, appMetrics)

	httpClient := httpadapter.NewClient(httpadapter.Config{
		UserAgent:          cfg.Fetch.UserAgent,
		InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
	}, logger.New(logCfg, "client.http"), appMetrics)

	sinks := &sink.FileFactory{
		Dir:    cfg.Sink.Dir,
		Unlink: cfg.Sink.Unlink,
	}

	fetcher := service.NewFetchService(
		httpClient,
		sinks,
		logger.New(logCfg, "service.fetch"),
		appMetrics,
	)

	return &Dependencies{
		logger:  appLogger,
		metrics: appMetrics,
		storage: store,
		fetcher: fetcher,
	}
}

// initializeStorage builds the configured storage backend
func initializeStorage(cfg *config.Config, logCfg logger.Config, appMetrics observability.Metrics) storage.ObjectStorage {
	storageLogger := logger.New(logCfg, "storage")

	switch cfg.Storage.Provider {
	case "s3":
		client, err := s3.NewClient(&s3.Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.S3.Region,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			MaxRetries:      cfg.Storage.MaxRetries,
			Timeout:         cfg.Storage.Timeout,
		}, storageLogger, appMetrics)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		return client

	default:
		store, err := fs.NewStorage(cfg.Storage.BasePath, storageLogger, appMetrics)
		if err != nil {
			log.Fatalf("Failed to initialize filesystem storage: %v", err)
		}
		return store
	}
}

// buildHandler assembles the worker and its middleware chain
func buildHandler(cfg *config.Config, deps *Dependencies) *handler.Handler {
	fetchWorker := worker.NewFetchWorker(
		deps.fetcher,
		deps.storage,
		cfg.Fetch.Options(),
		deps.logger,
		deps.metrics,
	)

	h := handler.NewHandler(fetchWorker, &cfg.Handler)
	h.Use(handler.RecoveryMiddleware(deps.logger, deps.metrics))
	h.Use(handler.LoggingMiddleware(deps.logger))
	h.Use(handler.MetricsMiddleware(deps.metrics))

	return h
}

// startPlatform runs the handler on the configured platform
func startPlatform(cfg *config.Config, deps *Dependencies, h *handler.Handler) {
	platform := cfg.Handler.Platform
	if platform == "" {
		platform = detectPlatform()
	}

	deps.logger.Info(context.Background(), "Starting handler", observability.Fields{
		"platform": platform,
	})

	switch platform {
	case "lambda":
		adapter := platforms.NewLambdaAdapter(h, &platforms.LambdaConfig{
			ProcessingTimeout:         cfg.Handler.Timeout,
			EnablePartialBatchFailure: cfg.Lambda.EnablePartialBatchFailure,
		})
		adapter.Start()

	case "rabbitmq":
		adapter := platforms.NewRabbitMQAdapter(h, &cfg.RabbitMQ, deps.logger)
		if err := adapter.Start(); err != nil {
			log.Fatalf("RabbitMQ consumer failed: %v", err)
		}

	default:
		adapter := platforms.NewHTTPAdapter(h)
		if err := adapter.Serve(cfg.HTTP.Addr); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}
}

// detectPlatform picks a platform from the runtime environment
func detectPlatform() string {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return "lambda"
	}
	return "http"
}
