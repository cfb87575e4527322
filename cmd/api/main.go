package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	"github.com/quietroom/therapy-booking/backend/internal/adapters/cache"
	"github.com/quietroom/therapy-booking/backend/internal/adapters/database"
	"github.com/quietroom/therapy-booking/backend/internal/adapters/events"
	"github.com/quietroom/therapy-booking/backend/internal/adapters/notifications"
	"github.com/quietroom/therapy-booking/backend/internal/adapters/providers/calendar"
	"github.com/quietroom/therapy-booking/backend/internal/api/handlers"
	"github.com/quietroom/therapy-booking/backend/internal/api/routes"
	"github.com/quietroom/therapy-booking/backend/internal/application/services"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/postgres"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/redis"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	"github.com/quietroom/therapy-booking/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenTelemetry tracing is optional; the engine runs fine without an
	// OTLP endpoint.
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	otelMetrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	engineMetrics := observability.NewEngineMetrics()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized")

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()
	logger.Info().Msg("Redis client initialized")

	// Adapters
	calendarDirectory := database.NewCalendarAdapter(pgClient)
	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	practitionerRepo := database.NewPractitionerAdapter(pgClient)

	var busyCache providers.BusyCache
	if cfg.Calendar.DistributedCache {
		busyCache = cache.NewRedisCache(redisClient)
		logger.Info().Msg("using Redis busy cache")
	} else {
		busyCache = cache.NewMemoryCache(cfg.Calendar.CacheMaxEntries)
		logger.Info().Int("max_entries", cfg.Calendar.CacheMaxEntries).Msg("using in-process busy cache")
	}

	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	calendarProvider := calendar.NewRESTAdapter(&cfg.Calendar, engineMetrics)

	// Services
	availabilityService := services.NewAvailabilityService(
		calendarProvider, busyCache, calendarDirectory,
		engineMetrics, otelMetrics, &cfg.Calendar, &cfg.Retry,
	)
	eventService := services.NewEventService(
		calendarProvider, busyCache, availabilityService, eventBus,
		engineMetrics, otelMetrics, &cfg.Retry,
	)
	channelService := services.NewChannelService(calendarProvider, calendarDirectory, &cfg.Calendar, &cfg.Retry)
	lifecycleService := services.NewLifecycleService(calendarProvider, calendarDirectory, channelService, &cfg.Calendar, &cfg.Retry)
	batchService := services.NewBatchAvailabilityService(availabilityService, &cfg.Calendar)
	syncService := services.NewSyncService(calendarProvider, calendarDirectory, busyCache, eventBus, &cfg.Retry)
	bookingService := services.NewBookingService(
		appointmentRepo, practitionerRepo, calendarDirectory, eventService,
		notifications.NewLogSender(),
	)

	cacheInvalidation := services.NewCacheInvalidationService(busyCache, eventBus)
	if err := cacheInvalidation.Start(); err != nil {
		logger.Warn().Err(err).Msg("failed to start cache invalidation service")
	}
	defer cacheInvalidation.Stop()

	// Channel renewal sweep. Channels outlive the renewal interval by a
	// wide margin, so a missed run degrades rather than breaks.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 15m", func() {
		sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer sweepCancel()
		if _, err := channelService.RenewExpiring(sweepCtx); err != nil {
			logger.Error().Err(err).Msg("channel renewal sweep failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule channel renewal sweep")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Handlers
	sqlxDB := sqlx.NewDb(pgClient.DB(), "postgres")

	calendarHandler := handlers.NewCalendarHandler(lifecycleService, channelService, calendarDirectory, practitionerRepo)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService, batchService)
	eventHandler := handlers.NewEventHandler(eventService)
	appointmentHandler := handlers.NewAppointmentHandler(bookingService)
	practitionerHandler := handlers.NewPractitionerHandler(practitionerRepo)
	notificationHandler := handlers.NewNotificationHandler(sqlxDB, calendarDirectory, syncService, cfg.Calendar.ChannelToken)
	healthHandler := handlers.NewHealthHandler(pgClient, redisClient, calendarDirectory, engineMetrics)

	router := routes.NewRouter(
		calendarHandler,
		availabilityHandler,
		eventHandler,
		appointmentHandler,
		practitionerHandler,
		notificationHandler,
		healthHandler,
		otelMetrics,
	)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
}
