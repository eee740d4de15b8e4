package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/kursadbilgin/dial-engine/internal/config"
	"github.com/kursadbilgin/dial-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/dial-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/dial-engine/internal/infra/redis"
	"github.com/kursadbilgin/dial-engine/internal/observability"
	"github.com/kursadbilgin/dial-engine/internal/queue"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"github.com/kursadbilgin/dial-engine/internal/service"
	"github.com/kursadbilgin/dial-engine/internal/telephony"
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

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

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

	retries := service.NewRetryScheduler(service.ExponentialBackoff{
		Base: cfg.RetryBackoffBase(),
		Max:  cfg.RetryBackoffMax(),
	})

	outcomes, err := service.NewOutcomeProcessor(contactRepo, retries, logger)
	if err != nil {
		logger.Fatal("outcome processor init failed", zap.Error(err))
	}
	outcomes.SetMetrics(metrics)

	dialer, err := telephony.NewGatewayDialer(cfg.TelephonyGatewayURL)
	if err != nil {
		logger.Fatal("telephony gateway init failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.DialRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter init failed", zap.Error(err))
	}

	publisher := queue.NewRabbitMQPublisher(mq)
	consumer := queue.NewRabbitMQConsumer(mq, cfg.WorkerConcurrency, logger)
	defer consumer.Close()

	feeder, err := service.NewCampaignFeeder(
		campaignRepo,
		generator,
		publisher,
		cfg.FeedInterval(),
		cfg.FeedLimit,
		logger,
	)
	if err != nil {
		logger.Fatal("campaign feeder init failed", zap.Error(err))
	}
	feeder.SetMetrics(metrics)

	dispatch, err := service.NewDispatchService(
		contactRepo,
		campaignRepo,
		suppressionRepo,
		locks,
		outcomes,
		consumer,
		dialer,
		rateLimiter,
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatch service init failed", zap.Error(err))
	}
	dispatch.SetMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return feeder.Start(ctx) })
	g.Go(func() error { return locks.Start(ctx) })
	g.Go(func() error { return dispatch.Start(ctx) })

	logger.Info("dial-engine worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Int("dialRatePerSec", cfg.DialRatePerSec),
	)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker shut down")
}
