package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/dial-engine/internal/config"
	"github.com/kursadbilgin/dial-engine/internal/handler"
	"github.com/kursadbilgin/dial-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/dial-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/dial-engine/internal/infra/redis"
	"github.com/kursadbilgin/dial-engine/internal/observability"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"github.com/kursadbilgin/dial-engine/internal/service"
	"github.com/kursadbilgin/dial-engine/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	contactRepo := repository.NewGormContactRepo(db)
	campaignRepo := repository.NewGormCampaignRepo(db)
	suppressionRepo := repository.NewGormSuppressionRepo(db)

	metrics := observability.NewMetrics()

	generator, err := service.NewQueueGenerator(campaignRepo, contactRepo, logger)
	if err != nil {
		logger.Fatal("queue generator init failed", zap.Error(err))
	}

	locks, err := service.NewLockManager(contactRepo, cfg.LockTTL(), cfg.LockReapInterval(), logger)
	if err != nil {
		logger.Fatal("lock manager init failed", zap.Error(err))
	}
	locks.SetMetrics(metrics)

	nextSvc, err := service.NewNextContactService(generator, locks, logger)
	if err != nil {
		logger.Fatal("next contact service init failed", zap.Error(err))
	}

	retries := service.NewRetryScheduler(service.ExponentialBackoff{
		Base: cfg.RetryBackoffBase(),
		Max:  cfg.RetryBackoffMax(),
	})

	outcomes, err := service.NewOutcomeProcessor(contactRepo, retries, logger)
	if err != nil {
		logger.Fatal("outcome processor init failed", zap.Error(err))
	}
	outcomes.SetMetrics(metrics)

	suppressionSvc, err := service.NewSuppressionService(suppressionRepo, contactRepo, logger)
	if err != nil {
		logger.Fatal("suppression service init failed", zap.Error(err))
	}

	ingestSvc, err := service.NewIngestService(contactRepo, campaignRepo, suppressionRepo, logger)
	if err != nil {
		logger.Fatal("ingest service init failed", zap.Error(err))
	}
	ingestSvc.SetDefaultMaxAttempts(cfg.DefaultMaxAttempts)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterDialRoutes(app, generator, nextSvc, outcomes, contactRepo); err != nil {
		logger.Fatal("dial routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterSuppressionRoutes(app, suppressionSvc); err != nil {
		logger.Fatal("suppression routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterContactRoutes(app, ingestSvc); err != nil {
		logger.Fatal("contact routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("dial-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(listenAddr(cfg.APIPort))
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down api")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("api stopped", zap.Error(err))
	}
}

func listenAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}
