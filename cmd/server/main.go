package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"xparking/internal/api"
	"xparking/internal/clock"
	"xparking/internal/config"
	"xparking/internal/database"
	"xparking/internal/domain"
	"xparking/internal/events"
	"xparking/internal/logging"
	"xparking/internal/metrics"
	"xparking/internal/models"
	"xparking/internal/report"
	"xparking/internal/repository"
	"xparking/internal/sepay"
	"xparking/internal/service"
	"xparking/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
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

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	location, err := time.LoadLocation(cfg.Parking.Timezone)
	if err != nil {
		logger.Error().Err(err).Str("timezone", cfg.Parking.Timezone).Msg("Invalid timezone")
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient, exitCache := initExitCache(ctx, cfg, &logger)
	defer func() {
		_ = repository.Close(redisClient)
	}()

	eventBus := events.NewEventBus()
	subscribeEvents(eventBus, &logger)

	clk := clock.System{}
	pricing := service.NewPricing(cfg.Pricing.BaseAmount, cfg.Pricing.BaseMinutes)
	matcher := sepay.NewNarrativeMatcher(cfg.SePay.MatchWindowMinutes)
	feed := sepay.NewClient(cfg.SePay)
	paymentTTL := time.Duration(cfg.SePay.PaymentTTLMinutes) * time.Minute

	paymentService := service.NewPaymentService(db, feed, matcher, exitCache, eventBus, cfg.SePay, location, paymentTTL, clk, &logger)
	gateService := service.NewGateService(db, exitCache, eventBus, clk, &logger)
	exitService := service.NewExitService(db, pricing, exitCache, cfg.SePay, location, paymentTTL, clk, &logger)
	slotService := service.NewSlotService(db, clk, &logger)

	// The booking service wakes the reconcile worker for fresh payment refs,
	// and the worker sweeps expired bookings between polls.
	bookingService := service.NewBookingService(db, pricing, eventBus, nil, cfg.SePay, clk, &logger)
	retryPolicy := worker.RetryPolicy{MaxRetries: cfg.Worker.MaxRetries, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	reconcileWorker := worker.NewReconcileWorker(db, paymentService, bookingService, redisClient, retryPolicy, cfg.Worker.PollInterval(), nil)
	bookingService.SetQueue(reconcileWorker)
	go reconcileWorker.Start(ctx)

	exporter := report.NewExporter(db, cfg.Exports.Path, location, &logger)

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, bookingService, gateService, paymentService, exitService, slotService, exporter)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	logger.Info().
		Int("slots", len(cfg.Parking.Slots)).
		Str("timezone", cfg.Parking.Timezone).
		Msg("Parking server started")

	<-ctx.Done()
	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create database directory")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("Failed to create exports directory")
			return err
		}
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize database")
		return nil, err
	}

	if err := db.SyncSlots(context.Background(), cfg.Parking.Slots); err != nil {
		logger.Error().Err(err).Msg("Failed to sync parking slots")
		return nil, err
	}
	return db, nil
}

func initExitCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.ExitCache) {
	ttl := models.ExitCacheTTLSeconds * time.Second

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primary := repository.NewRedisExitCache(redisClient, ttl)
	fallback := repository.NewMemoryExitCache(ttl)
	return redisClient, repository.NewFailoverExitCache(primary, fallback, logger)
}

func subscribeEvents(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logger.With().Str("component", "events").Logger()
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingCancelled,
		events.EventBookingExpired,
		events.EventVehicleCheckedIn,
		events.EventVehicleCheckedOut,
		events.EventPaymentCompleted,
		events.EventPaymentExpired,
	} {
		bus.Subscribe(eventType, func(event *events.Event) error {
			audit.Info().
				Str("event", event.Type).
				RawJSON("payload", event.Payload).
				Msg("Domain event")
			return nil
		})
	}
}
