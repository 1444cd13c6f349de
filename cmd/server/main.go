package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"lessonbook/internal/api"
	"lessonbook/internal/config"
	"lessonbook/internal/database"
	"lessonbook/internal/domain"
	"lessonbook/internal/events"
	"lessonbook/internal/logging"
	"lessonbook/internal/metrics"
	"lessonbook/internal/notify"
	"lessonbook/internal/repository"
	"lessonbook/internal/scheduler"
	"lessonbook/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg); err != nil {
		return err
	}

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, locks := initLocks(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	dispatcher := notify.NewDispatcher(
		initSMSGateway(cfg, logger),
		initEmailGateway(cfg, logger),
		cfg.Scheduler.GatewayTimeout,
		logger,
	)

	eventBus := events.NewEventBus()
	subscribeSlotEvents(eventBus, logger)

	location := cfg.Location()
	slotService := service.NewSlotService(db, eventBus, location, logger)
	bookingLedger := service.NewBookingLedger(db, dispatcher, eventBus, location, logger)
	userService := service.NewUserService(db, cfg.API.AdminSecret, logger)

	if cfg.Scheduler.Enabled {
		reminders := scheduler.New(db, dispatcher, locks, eventBus, scheduler.Options{
			Interval: cfg.Scheduler.Interval,
			Window:   cfg.Scheduler.ReminderWindow,
			LockTTL:  cfg.Scheduler.LockTTL,
			Location: location,
		}, logger)
		go reminders.Start(ctx)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		go serveMetrics(cfg.Monitoring.PrometheusPort, logger)
	}

	if cfg.API.Enabled {
		exporter := api.NewScheduleExporter(db, cfg.Exports.Path, location, logger)
		apiServer := api.NewHTTPServer(cfg.API, slotService, bookingLedger, userService, exporter, locks, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("api server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().Str("env", cfg.App.Environment).Msg("lessonbook started")
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.Component(baseLogger, "server-main")
	return cfg, &logger, closer, nil
}

func prepareDirectories(cfg *config.Config) error {
	dirs := []string{
		filepath.Dir(cfg.Database.Path),
		cfg.Exports.Path,
	}
	if cfg.Backup.Enabled && cfg.Backup.StoragePath != "" {
		dirs = append(dirs, cfg.Backup.StoragePath)
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// initLocks wires the shared lock and rate-limit store: redis behind a
// failover wrapper when enabled and reachable, plain in-memory otherwise.
func initLocks(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.LockRepository) {
	memory := repository.NewMemoryLockRepository()
	if !cfg.Redis.Enabled {
		logger.Info().Msg("redis disabled, using in-memory tick guard")
		return nil, memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup, failover will keep probing")
	}

	return client, repository.NewFailoverLockRepository(
		repository.NewRedisLockRepository(client), memory, logger)
}

func initSMSGateway(cfg *config.Config, logger *zerolog.Logger) domain.SMSGateway {
	if cfg.Twilio.AccountSID == "" || cfg.Twilio.APIKey == "" {
		logger.Warn().Msg("twilio credentials missing, text messages go to the log")
		return notify.NewConsoleSMSGateway(logger)
	}
	return notify.NewTwilioGateway(cfg.Twilio, cfg.Scheduler.GatewayTimeout, logger)
}

func initEmailGateway(cfg *config.Config, logger *zerolog.Logger) domain.EmailGateway {
	if cfg.Sendgrid.APIKey == "" {
		logger.Warn().Msg("sendgrid credentials missing, emails go to the log")
		return notify.NewConsoleEmailGateway(logger)
	}
	return notify.NewSendgridGateway(cfg.Sendgrid, cfg.App.Name, logger)
}

// subscribeSlotEvents attaches an audit log hook to every lifecycle event.
func subscribeSlotEvents(bus *events.EventBus, logger *zerolog.Logger) {
	for _, eventType := range []string{
		events.EventSlotCreated,
		events.EventSlotBooked,
		events.EventSlotCancelled,
		events.EventSlotRemoved,
		events.EventReminderSent,
	} {
		eventType := eventType
		bus.Subscribe(eventType, func(event *events.Event) error {
			logger.Info().
				Str("event", eventType).
				RawJSON("payload", event.Payload).
				Msg("slot event")
			return nil
		})
	}
}

func serveMetrics(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", server.Addr).Msg("metrics endpoint listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
