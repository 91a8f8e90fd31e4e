package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prodlens/backend/config"
	httpDelivery "github.com/prodlens/backend/internal/delivery/http"
	"github.com/prodlens/backend/internal/domain"
	"github.com/prodlens/backend/internal/infrastructure/cache"
	"github.com/prodlens/backend/internal/infrastructure/gemini"
	"github.com/prodlens/backend/internal/infrastructure/postgres"
	"github.com/prodlens/backend/internal/infrastructure/upcitemdb"
	"github.com/prodlens/backend/internal/logging"
	"github.com/prodlens/backend/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.Log, os.Stdout)

	logger.Info("starting ProdLens backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"cache_type", cfg.Cache.Type,
		"confidence_threshold", cfg.Matching.ConfidenceThreshold)

	// Initialize infrastructure dependencies
	productCache, closeCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	store, db, err := newProductStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	upcClient := upcitemdb.NewClient(cfg.UPC.BaseURL, cfg.UPC.Timeout, cfg.UPC.RequestsPerMinute)

	geminiClient := gemini.NewClient(gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		BaseURL:           cfg.Gemini.BaseURL,
		Model:             cfg.Gemini.Model,
		MaxRetries:        cfg.Gemini.MaxRetries,
		BackoffUnit:       cfg.Gemini.BackoffUnit,
		Timeout:           cfg.Gemini.Timeout,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
	})
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not configured, AI verification and search will fail")
	}

	// Initialize usecase layer
	lookupService := usecase.NewLookupService(upcClient, geminiClient, productCache, store,
		usecase.LookupServiceConfig{
			ConfidenceThreshold: cfg.Matching.ConfidenceThreshold,
			CacheTTL:            cfg.Cache.TTL,
		})
	logger.Info("lookup service ready", "confidence_threshold", lookupService.Threshold(), "cache", cfg.Cache.Type)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(lookupService)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

// newCache returns the configured product cache; type "none" yields a nil cache
func newCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, func(), error) {
	switch cfg.Type {
	case config.CacheTypeRedis:
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisCache := cache.NewRedisCache(client, "prodlens")
		return redisCache, closer(redisCache), nil

	case config.CacheTypeNone:
		return nil, func() {}, nil

	default:
		memoryCache := cache.NewMemoryCache()
		return memoryCache, closer(memoryCache), nil
	}
}

// newProductStore opens the product store when a database URL is configured
func newProductStore(
	ctx context.Context,
	cfg config.DatabaseConfig,
	logger *slog.Logger,
) (domain.ProductStore, *sql.DB, error) {
	if cfg.URL == "" {
		logger.Info("product store disabled (no database URL)")
		return nil, nil, nil
	}

	db, err := postgres.Open(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("database migrations applied")
	}

	return postgres.NewProductStore(db), db, nil
}

func closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}
