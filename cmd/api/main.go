package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hubbook/internal/api"
	"hubbook/internal/config"
	"hubbook/internal/database"
	"hubbook/internal/domain"
	"hubbook/internal/events"
	"hubbook/internal/logging"
	"hubbook/internal/metrics"
	"hubbook/internal/models"
	"hubbook/internal/repository"
	"hubbook/internal/service"
	"hubbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	hubs, err := loadHubs(&logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, hubs, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := buildCache(cfg, redisClient, &logger)

	eventBus := events.NewEventBus()
	subscribeAuditLog(eventBus, &logger)

	svc := service.NewAvailabilityService(db, cache, eventBus, cfg.Booking, &logger)

	provisioner := worker.NewProvisionWorker(svc, worker.RetryPolicy{
		MaxRetries: cfg.Booking.ProvisionRetries,
	}, &logger)
	provisioner.Start()
	defer provisioner.Stop()

	httpServer := api.NewHTTPServer(&cfg.API, svc, provisioner, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadHubs(logger *zerolog.Logger) ([]models.Hub, error) {
	hubsPath := os.Getenv("HUBS_PATH")
	if hubsPath == "" {
		hubsPath = "configs/hubs.yaml"
	}
	hubsData, err := os.ReadFile(hubsPath)
	if err != nil {
		logger.Error().Err(err).Str("hubs_path", hubsPath).Msg("read hubs")
		return nil, err
	}

	var hubsConfig struct {
		Hubs []models.Hub `yaml:"hubs"`
	}
	if err := yaml.Unmarshal(hubsData, &hubsConfig); err != nil {
		logger.Error().Err(err).Str("hubs_path", hubsPath).Msg("parse hubs")
		return nil, err
	}

	if err := config.ValidateHubs(hubsConfig.Hubs); err != nil {
		return nil, fmt.Errorf("hub catalog validation failed: %w", err)
	}

	return hubsConfig.Hubs, nil
}

func initDatabase(cfg *config.Config, hubs []models.Hub, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	hubPointers := make([]*models.Hub, len(hubs))
	for i := range hubs {
		hubPointers[i] = &hubs[i]
	}
	db.SetHubs(hubPointers)
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory cache")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildCache returns the availability cache: Redis with in-memory failover
// when Redis is configured, plain in-memory otherwise.
func buildCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.AvailabilityCache {
	memory := repository.NewMemoryAvailabilityCache()
	if redisClient == nil {
		return memory
	}

	opTimeout := time.Duration(cfg.Booking.CacheTimeoutMS) * time.Millisecond
	primary := repository.NewRedisAvailabilityCache(redisClient, opTimeout)
	return repository.NewFailoverAvailabilityCache(primary, memory, logger)
}

func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	handler := func(event *events.Event) error {
		logger.Info().
			Str("event_type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("booking event")
		return nil
	}

	for _, eventType := range []string{
		events.EventSlotBooked,
		events.EventBookingCancelled,
		events.EventDayClosed,
		events.EventDayOpened,
		events.EventSlotsUpdated,
		events.EventDayProvisioned,
	} {
		bus.Subscribe(eventType, handler)
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
