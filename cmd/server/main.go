package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koios/lockscreenr/internal/config"
	"github.com/koios/lockscreenr/internal/generative"
	"github.com/koios/lockscreenr/internal/handlers"
	"github.com/koios/lockscreenr/internal/redis"
	"github.com/koios/lockscreenr/internal/session"
	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// run wires every component and serves until ctx is cancelled or a signal
// arrives. Components started before a failure are stopped before it returns.
func run(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Preset library
	presets, err := models.NewPresetRegistry()
	if err != nil {
		return fmt.Errorf("failed to load built-in presets: %w", err)
	}
	if cfg.Presets.Path != "" {
		n, errs := presets.LoadDir(cfg.Presets.Path)
		for _, e := range errs {
			logger.Warn("Skipped preset", zap.Error(e))
		}
		logger.Info("Loaded presets from disk", zap.String("path", cfg.Presets.Path), zap.Int("count", n))
	}

	// Optional Redis: snapshots, change events, pushed imports and the result cache
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	// Generator chain: cache -> worker pool -> hosted model
	pool := generative.NewPool(cfg.Generator.Workers, time.Duration(cfg.Generator.Timeout)*time.Second, logger)
	pool.Start()
	defer pool.Stop()

	var gen generative.Generator = generative.NewPooledGenerator(pool, generative.NewClient(cfg.Generator, logger))
	if cfg.Generator.CacheTTL > 0 {
		var cache generative.ResultCache
		if redisClient != nil {
			logger.Info("Caching generated images in Redis", zap.String("redis_addr", cfg.Redis.Addr))
			cache = generative.NewRedisCacheFromClient(redisClient.Raw())
		} else {
			logger.Info("Caching generated images in memory")
			cache = generative.NewMemoryCache()
		}
		gen = generative.NewCachedGenerator(gen, cache, time.Duration(cfg.Generator.CacheTTL)*time.Second, logger)
	}
	if cfg.Generator.APIKey == "" {
		logger.Warn("GENERATOR_API_KEY is not set; icon and heatmap generation will fail")
	}

	opts := session.Options{
		Presets:       presets,
		Generator:     gen,
		DefaultPreset: cfg.Presets.Default,
		MaxSessions:   cfg.Presets.MaxSessions,
		StrictImport:  cfg.Presets.StrictImport,
	}
	if redisClient != nil {
		opts.Snapshots = redisClient
	}
	manager := session.NewManager(opts, logger)
	defer manager.Close()

	// Fatal component errors end the run with the first one reported
	fatal := make(chan error, 2)

	// Pushed configs from lockscreenctl
	var consumer *redis.Consumer
	if redisClient != nil {
		consumer = redis.NewConsumer(redisClient, manager, logger)
		go func() {
			if err := consumer.Start(); err != nil {
				fatal <- fmt.Errorf("redis consumer failed: %w", err)
			}
		}()
		defer consumer.Stop()
	}

	var handlerOpts []handlers.Option
	if redisClient != nil {
		handlerOpts = append(handlerOpts, handlers.WithHealthCheck("redis", redisClient.IsHealthy))
	}
	handler := handlers.NewHandler(manager, presets, cfg.Server, logger, handlerOpts...)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}

	httpServer := &http.Server{
		Handler:      handlers.NewRouter(handler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	// live streams only end when their request context does
	httpServer.RegisterOnShutdown(cancel)

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", listener.Addr().String()))
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			fatal <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	logger.Info("Server started",
		zap.String("addr", listener.Addr().String()),
		zap.Int("presets", presets.Count()),
		zap.Bool("redis", redisClient != nil))

	// Wait for interrupt signal, cancellation or a fatal component error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
	case <-ctx.Done():
	case runErr = <-fatal:
	}

	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Server shutdown complete")
	return runErr
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
