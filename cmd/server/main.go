package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tranzac/internal/api"
	"tranzac/internal/cms"
	"tranzac/internal/config"
	"tranzac/internal/domain"
	"tranzac/internal/events"
	"tranzac/internal/logging"
	"tranzac/internal/mailer"
	"tranzac/internal/metrics"
	"tranzac/internal/pdf"
	"tranzac/internal/pricing"
	"tranzac/internal/repository"
	"tranzac/internal/service"
	"tranzac/internal/worker"

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
		defer (func() { _ = closer.Close() })()
	}

	metrics.Register()

	loc, err := time.LoadLocation(cfg.Pricing.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Pricing.Timezone, err)
	}

	table, err := loadPricingTable(cfg, &logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := repository.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	estimateRepo := repository.NewMongoEstimateRepository(mongoClient, cfg.Mongo)
	if err := estimateRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure mongo indexes: %w", err)
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	sessions := initSessions(redisClient, &logger)

	cmsClient := cms.NewClient(cfg.CMS, loc)
	if redisClient != nil {
		cmsClient.UseRedisCache(redisClient, 5*time.Minute)
	}

	syncWorker := worker.NewCMSSyncWorker(cmsClient, redisClient, worker.RetryPolicy{}, &logger)
	go syncWorker.Start(ctx)

	eventBus := events.NewEventBus()
	subscribeAuditLog(eventBus, &logger)

	calc := pricing.NewCalculator(table, loc)
	estimates := service.NewEstimateService(estimateRepo, cmsClient, calc, eventBus, syncWorker, cfg.Pricing.TaxRate, &logger)
	sender := service.NewEstimateSender(estimates, cmsClient, initPDF(cfg), mailer.NewSendGridMailer(cfg.Email), loc, &logger)

	server := api.NewServer(cfg.API, cfg.Monitoring, api.ServerDeps{
		Estimates: estimates,
		Sender:    sender,
		Repo:      estimateRepo,
		CMS:       cmsClient,
		Sessions:  sessions,
		Table:     table,
		Calc:      calc,
		TaxRate:   cfg.Pricing.TaxRate,
		Location:  loc,
		Logger:    &logger,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	logger.Info().Int("port", cfg.API.Port).Msg("Server started")

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}

	logger.Info().Msg("Server stopped")
	return nil
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
	logger := baseLogger.With().Str("component", "main").Logger()

	return cfg, logger, closer, nil
}

func loadPricingTable(cfg *config.Config, logger *zerolog.Logger) (*pricing.Table, error) {
	if cfg.Pricing.RulesPath == "" {
		logger.Info().Msg("Using built-in pricing table")
		return pricing.DefaultTable(), nil
	}

	table, err := pricing.LoadTable(cfg.Pricing.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load pricing rules %q: %w", cfg.Pricing.RulesPath, err)
	}
	logger.Info().Str("rules_path", cfg.Pricing.RulesPath).Msg("Pricing table loaded")
	return table, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("Redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("Redis connected")
	return client
}

// initSessions wires the session store: redis with in-memory failover when
// redis is configured, plain in-memory otherwise.
func initSessions(redisClient *redis.Client, logger *zerolog.Logger) domain.SessionRepository {
	memory := repository.NewMemorySessionRepository()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverSessionRepository(
		repository.NewRedisSessionRepository(redisClient), memory, logger)
}

func initPDF(cfg *config.Config) domain.PDFGenerator {
	if cfg.PDF.Local {
		return pdf.NewLocalRenderer(cfg.App.Name)
	}
	return pdf.NewServiceClient(cfg.PDF)
}

// subscribeAuditLog mirrors every lifecycle event into the structured log,
// which is the venue's audit trail.
func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logger.With().Str("component", "audit").Logger()
	for _, eventType := range []string{
		events.EventEstimateCreated,
		events.EventVersionCreated,
		events.EventEstimateUpdated,
		events.EventEstimateSent,
		events.EventEstimateAccepted,
		events.EventEstimateRejected,
		events.EventRecalculated,
	} {
		bus.Subscribe(eventType, func(event *events.Event) error {
			audit.Info().
				Str("event", event.Type).
				RawJSON("payload", event.Payload).
				Msg("Estimate event")
			return nil
		})
	}
}
