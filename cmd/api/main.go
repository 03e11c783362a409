package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/property-ingest/internal/adapter/postgres"
	redis_adapter "github.com/user/property-ingest/internal/adapter/redis"
	"github.com/user/property-ingest/internal/delivery/http/handler"
	"github.com/user/property-ingest/internal/delivery/http/router"
	"github.com/user/property-ingest/internal/fetcher"
	"github.com/user/property-ingest/internal/normalizer"
	"github.com/user/property-ingest/internal/quality"
	"github.com/user/property-ingest/internal/source"
	"github.com/user/property-ingest/internal/usecase"
	"github.com/user/property-ingest/internal/validator"
	"github.com/user/property-ingest/pkg/config"
	"github.com/user/property-ingest/pkg/logger"
	"github.com/user/property-ingest/pkg/metrics"
	"github.com/user/property-ingest/pkg/ratelimit"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	// --- Database Connections ---
	ctx := context.Background()

	// PostgreSQL
	pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	dbpool, err := pgxpool.New(ctx, pgConnString)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	slog.Info("PostgreSQL connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// --- Repositories ---
	scrapedRepo := redis_adapter.NewScrapedSetRepo(rdb)
	jobRepo := redis_adapter.NewJobQueueRepo(rdb)
	propertyRepo := postgres.NewPropertyRepo(dbpool)
	failedRepo := postgres.NewFailedParcelRepo(dbpool)

	// --- Scraping stack ---
	adapters, err := buildAdapters(cfg)
	if err != nil {
		slog.Error("Unable to build source adapters", "error", err)
		os.Exit(1)
	}

	region := regionFromConfig(cfg.Sources.Region)
	v := validator.New(region)
	scorer := quality.New(v)

	// --- Use Cases ---
	scraper := usecase.NewScrapeUseCase(adapters, propertyRepo, scrapedRepo, failedRepo, v, scorer, usecase.ScrapeOptions{
		ScrapedExpiry:  cfg.ScrapedTTL,
		MaxConcurrency: cfg.MaxConcurrency,
	})
	batchManager := usecase.NewBatchUseCase(scraper, jobRepo)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(scraper, batchManager)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("Starting server", "port", cfg.ServerPort, "sources", scraper.Sources())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
		os.Exit(1)
	}
}

// buildAdapters creates one adapter per configured source, all sharing a
// single rate limiter and fetcher so per-domain budgets hold across sources.
func buildAdapters(cfg *config.Config) (map[string]source.Adapter, error) {
	limiter := ratelimit.New(ratelimit.DefaultConfig())
	limiter.OnWait(func(domain string, waited time.Duration) {
		metrics.RateLimiterWait.WithLabelValues(domain).Observe(waited.Seconds())
	})
	fetch := fetcher.New(limiter, cfg.FetchTimeout, cfg.MaxRetries)
	norm := normalizer.New(regionFromConfig(cfg.Sources.Region))
	registry := source.DefaultRegistry()

	adapters := make(map[string]source.Adapter)
	for sourceID, sc := range cfg.Sources.Sources {
		adapter, err := registry.Create(sourceID, source.Options{
			BaseURL:    sc.BaseURL,
			CountyCode: sc.CountyCode,
			Fetcher:    fetch,
			Normalizer: norm,
		})
		if err != nil {
			return nil, err
		}
		if sc.Rate != nil {
			limiter.Configure(adapter.Domain(), ratelimit.Config{
				RequestsPerSecond: sc.Rate.RequestsPerSecond,
				Window:            time.Duration(sc.Rate.WindowMs) * time.Millisecond,
			})
		}
		adapters[sourceID] = adapter
	}
	if len(adapters) == 0 {
		slog.Warn("No sources configured; set SOURCES_FILE to a sources yaml")
	}
	return adapters, nil
}

func regionFromConfig(rc config.RegionConfig) normalizer.Region {
	return normalizer.Region{
		MinLatitude:  rc.MinLatitude,
		MaxLatitude:  rc.MaxLatitude,
		MinLongitude: rc.MinLongitude,
		MaxLongitude: rc.MaxLongitude,
		DefaultState: rc.DefaultState,
	}
}
