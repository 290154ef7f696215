package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/productlens/backend/config"
	httpDelivery "github.com/productlens/backend/internal/delivery/http"
	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/infrastructure/aggregator"
	"github.com/productlens/backend/internal/infrastructure/cache"
	"github.com/productlens/backend/internal/infrastructure/mongostore"
	"github.com/productlens/backend/internal/infrastructure/redisstore"
	"github.com/productlens/backend/internal/logger"
	"github.com/productlens/backend/internal/metrics"
	"github.com/productlens/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.LogLevel, cfg.Server.Environment == "development")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	log.Info("starting ProductLens backend",
		logger.String("environment", cfg.Server.Environment),
		logger.String("port", cfg.Server.Port),
		logger.String("storage", cfg.Storage.Type),
		logger.Bool("new_searches_enabled", cfg.Search.NewSearchesEnabled),
	)

	m := metrics.New()

	store, closeStore, err := newStore(cfg.Storage, log)
	if err != nil {
		return err
	}

	aggregatorClient := aggregator.NewClient(aggregator.Config{
		APIKey:          cfg.Aggregator.APIKey,
		BaseURL:         cfg.Aggregator.BaseURL,
		Engine:          cfg.Aggregator.Engine,
		Currency:        cfg.Aggregator.Currency,
		RequestsPerHour: cfg.Aggregator.RequestsPerHour,
		Timeout:         cfg.Aggregator.Timeout,
		MaxAttempts:     cfg.Aggregator.MaxAttempts,
	}, log)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		aggregatorClient.SetDebug(true)
		log.Debug("aggregator client debug mode enabled")
	}

	if cfg.Aggregator.APIKey == "" {
		log.Warn("aggregator API key not configured, only cached searches can be served",
			logger.String("base_url", cfg.Aggregator.BaseURL))
	}

	searchService := usecase.NewSearchService(
		store,
		aggregatorClient,
		usecase.SearchServiceConfig{
			DefaultQuery:       cfg.Search.DefaultQuery,
			NewSearchesEnabled: cfg.Search.NewSearchesEnabled,
		},
		log,
		m,
	)

	handler := httpDelivery.NewHandler(searchService, log)
	router := httpDelivery.SetupRouter(cfg, handler, log, m)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			_ = closeStore(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
	}
	if err := closeStore(shutdownCtx); err != nil {
		log.Error("closing storage failed", logger.Error(err))
	}

	log.Info("server stopped")
	return nil
}

// newStore builds the configured search result store. The connection is
// established lazily by the first search, so an unreachable backend
// surfaces as a storage_connection failure rather than a startup crash.
func newStore(cfg config.StorageConfig, log logger.Logger) (domain.SearchCache, func(context.Context) error, error) {
	switch cfg.Type {
	case config.StorageMongo:
		store := mongostore.New(mongostore.Config{
			URI:        cfg.MongoURI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		}, log)
		return store, store.Close, nil

	case config.StorageRedis:
		store, err := redisstore.NewFromURL(cfg.RedisURL, cfg.RedisKey, log)
		if err != nil {
			return nil, nil, fmt.Errorf("redis storage: %w", err)
		}
		return store, store.Close, nil

	case config.StorageMemory:
		log.Warn("using in-memory storage, results are lost on restart")
		return cache.NewMemoryStore(), func(context.Context) error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
