package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bymarket/adradar/config"
	"bymarket/adradar/internal/extractor"
	"bymarket/adradar/internal/storage"
	"bymarket/adradar/logger"
	"bymarket/adradar/services/cache"
	"bymarket/adradar/services/notifier"
	"bymarket/adradar/services/scheduler"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("poll_interval", cfg.PollInterval).
		Int("batch_size", cfg.BatchSize).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Build the extractor registry
	registry, err := extractor.NewRegistry(cfg, services.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build extractor registry")
	}
	log.Info().
		Int("platform_count", len(registry.Platforms())).
		Msg("Created extractors")

	// Create and start the polling scheduler
	sched := scheduler.New(services.Gateway, registry, services.Notifier, cfg)
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().
		Str("signal", sig.String()).
		Msg("Received shutdown signal")
	cancel()

	// Let any in-flight cycle finish; every ad insert is independently
	// idempotent, so an abandoned batch is safe to resume on next start.
	<-sched.Stop().Done()
	log.Info().Msg("Shut down gracefully")
}

// Services holds all the initialized services
type Services struct {
	Gateway  *storage.PostgresGateway
	Cache    cache.CacheService
	Notifier notifier.Notifier
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Notifier != nil {
		s.Notifier.Close()
	}
	if s.Gateway != nil {
		s.Gateway.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg config.Config) (*Services, error) {
	services := &Services{}

	// Initialize the persistence gateway
	gateway, err := storage.NewPostgresGateway(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := gateway.EnsureSchema(ctx); err != nil {
		gateway.Close()
		return nil, err
	}
	services.Gateway = gateway

	logger.Info("Connected to Postgres")

	// Initialize cache service (per-platform cooldown store)
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	if cacheService == nil {
		gateway.Close()
		return nil, fmt.Errorf("failed to create cache service")
	}
	services.Cache = cacheService

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize the notification gateway
	redisNotifier := notifier.NewRedisNotifier(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLength,
	)
	if redisNotifier == nil {
		gateway.Close()
		return nil, fmt.Errorf("failed to create redis notifier")
	}
	services.Notifier = redisNotifier

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services, nil
}
