// Package main wires together the content ingestion service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/api"
	"github.com/C41M50N/readr-convex-hackathon/internal/clock/system"
	"github.com/C41M50N/readr-convex-hackathon/internal/config"
	"github.com/C41M50N/readr-convex-hackathon/internal/content"
	"github.com/C41M50N/readr-convex-hackathon/internal/id/uuid"
	"github.com/C41M50N/readr-convex-hackathon/internal/llm"
	"github.com/C41M50N/readr-convex-hackathon/internal/logging"
	"github.com/C41M50N/readr-convex-hackathon/internal/pipeline"
	memorypublisher "github.com/C41M50N/readr-convex-hackathon/internal/publisher/memory"
	pubsubpublisher "github.com/C41M50N/readr-convex-hackathon/internal/publisher/pubsub"
	"github.com/C41M50N/readr-convex-hackathon/internal/retrier"
	"github.com/C41M50N/readr-convex-hackathon/internal/scrape"
	"github.com/C41M50N/readr-convex-hackathon/internal/services"
	memorystore "github.com/C41M50N/readr-convex-hackathon/internal/store/memory"
	postgresstore "github.com/C41M50N/readr-convex-hackathon/internal/store/postgres"
	"github.com/C41M50N/readr-convex-hackathon/internal/urlkit"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.NewUUIDGenerator()

	store, closeStore, err := buildStore(ctx, cfg, clock, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	publisher, closePublisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer closePublisher()

	retry, err := retrier.New(retrier.Config{
		InitialBackoff: cfg.InitialBackoff(),
		BackoffBase:    cfg.Retry.BackoffBase,
		MaxFailures:    cfg.Retry.MaxFailures,
		PoolSize:       cfg.Retry.PoolSize,
	}, idGen, logger.Named("retrier"))
	if err != nil {
		logger.Fatal("retrier init failed", zap.Error(err))
	}
	defer retry.Close()

	resolver := urlkit.NewResolver(urlkit.Config{
		Timeout:   cfg.HTTPTimeout(),
		UserAgent: cfg.HTTP.UserAgent,
	}, logger.Named("urlkit"))

	generator := llm.New(llm.Config{
		Endpoint: cfg.LLM.Endpoint,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, logger.Named("llm"))

	orchestrator := pipeline.New(pipeline.Config{
		Normalizer:  resolver,
		Store:       store,
		Retrier:     retry,
		Cleaner:     buildCleaner(cfg, logger),
		Transcripts: services.NewTranscripts(services.Config{
			BaseURL: cfg.Services.TranscriptsBaseURL,
			Timeout: time.Duration(cfg.Services.TimeoutSeconds) * time.Second,
		}, logger.Named("transcripts")),
		Generator: generator,
		Scraper:   buildScraper(cfg, logger),
		Publisher: publisher,
		Topic:     cfg.PubSub.TopicName,
		Logger:    logger.Named("pipeline"),
	})

	apiServer := api.NewServer(store, orchestrator, idGen, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildStore selects Postgres when a DSN is configured and the in-memory
// store otherwise.
func buildStore(ctx context.Context, cfg config.Config, clock content.Clock, logger *zap.Logger) (content.Store, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Info("using in-memory store")
		return memorystore.New(clock), func() {}, nil
	}
	store, err := postgresstore.New(ctx, postgresstore.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetimeMin) * time.Minute,
	}, clock)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using postgres store")
	return store, store.Close, nil
}

// buildPublisher selects Pub/Sub when a project is configured and the
// in-memory publisher otherwise.
func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (content.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" {
		logger.Info("using in-memory publisher")
		return memorypublisher.New(), func() {}, nil
	}
	client, err := pubsubv2.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topicPublisher := client.Publisher(cfg.PubSub.TopicName)
	logger.Info("using pubsub publisher", zap.String("topic", cfg.PubSub.TopicName))
	closeFn := func() {
		topicPublisher.Stop()
		if err := client.Close(); err != nil {
			logger.Error("pubsub client close error", zap.Error(err))
		}
	}
	return pubsubpublisher.New(topicPublisher), closeFn, nil
}

func buildCleaner(cfg config.Config, logger *zap.Logger) content.DocumentCleaner {
	timeout := time.Duration(cfg.Services.TimeoutSeconds) * time.Second
	if cfg.Services.CleanerBaseURL == "" {
		logger.Info("using in-process readability cleaner")
		return services.NewReadabilityCleaner(timeout, logger.Named("cleaner"))
	}
	return services.NewCleaner(services.Config{
		BaseURL: cfg.Services.CleanerBaseURL,
		Timeout: timeout,
	}, logger.Named("cleaner"))
}

func buildScraper(cfg config.Config, logger *zap.Logger) content.PageScraper {
	timeout := time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second
	if cfg.Scrape.Endpoint == "" {
		logger.Info("using in-process page scraper")
		return scrape.NewLocal(scrape.LocalConfig{
			Timeout:   timeout,
			UserAgent: cfg.HTTP.UserAgent,
		}, logger.Named("scrape"))
	}
	return scrape.NewRemote(scrape.RemoteConfig{
		Endpoint: cfg.Scrape.Endpoint,
		APIKey:   cfg.Scrape.APIKey,
		Timeout:  timeout,
	}, logger.Named("scrape"))
}
