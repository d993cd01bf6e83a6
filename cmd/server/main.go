package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/adapters/postgres"
	"github.com/kevin07696/clientledger/internal/adapters/rabbitmq"
	"github.com/kevin07696/clientledger/internal/adapters/redislock"
	"github.com/kevin07696/clientledger/internal/adapters/secrets"
	"github.com/kevin07696/clientledger/internal/config"
	"github.com/kevin07696/clientledger/internal/domain/ports"
	cronHandler "github.com/kevin07696/clientledger/internal/handlers/cron"
	paymentHandler "github.com/kevin07696/clientledger/internal/handlers/payment"
	subscriptionHandler "github.com/kevin07696/clientledger/internal/handlers/subscription"
	paymentService "github.com/kevin07696/clientledger/internal/services/payment"
	subscriptionService "github.com/kevin07696/clientledger/internal/services/subscription"
	"github.com/kevin07696/clientledger/pkg/logging"
	"github.com/kevin07696/clientledger/pkg/middleware"
	"github.com/kevin07696/clientledger/pkg/observability"
	"github.com/kevin07696/clientledger/pkg/resilience"
	"github.com/kevin07696/clientledger/pkg/shutdown"
	"github.com/kevin07696/clientledger/pkg/timeutil"
)

const version = "0.1.0"

// Dependencies holds everything main wires together
type Dependencies struct {
	scheduler *cronHandler.Scheduler
	health    *observability.HealthChecker
	router    http.Handler
}

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting clientledger", zap.String("version", version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := resolveSecrets(ctx, cfg, logger); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	sm.RegisterNoErr("background context", cancel)

	deps, err := initDependencies(ctx, cfg, logger, sm)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	if cfg.Scheduler.Enabled {
		if err := deps.scheduler.Start(cfg.Scheduler.OverdueSweepSchedule); err != nil {
			logger.Fatal("Failed to start scheduler", zap.Error(err))
		}
		sm.Register("scheduler", func(ctx context.Context) error {
			select {
			case <-deps.scheduler.Stop().Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      deps.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	sm.Register("http server", httpServer.Shutdown)

	metricsServer := observability.StartMetricsServer(cfg.Server.MetricsPort, deps.health, logger)
	sm.Register("metrics server", metricsServer.Shutdown)

	if err := sm.WaitForShutdown(context.Background()); err != nil {
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Logger.Level, cfg.Logger.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func resolveSecrets(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := secrets.NewStore(ctx, cfg.Secrets, logger)
	if err != nil {
		return err
	}
	if store != nil {
		logger.Info("Secret store initialized", zap.String("backend", cfg.Secrets.Backend))
	}
	return secrets.ResolveConfig(ctx, store, cfg)
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.ConnectionString())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	postgres.StartPoolMonitoring(ctx, pool, 30*time.Second, logger)
	return pool, nil
}

func initLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.RecordLocker, *redis.Client, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR not set, record locks are held in process")
		return redislock.NewLocalLocker(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("Redis record locker initialized", zap.String("addr", cfg.Redis.Addr))
	return redislock.NewRedisLocker(client, cfg.Redis.LockPrefix), client, nil
}

func initPublisher(cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	portsLogger := logging.NewZapLogger(logger)
	if cfg.Broker.URL == "" {
		logger.Warn("AMQP_URL not set, domain events are logged only")
		return rabbitmq.NewLogPublisher(portsLogger)
	}

	producer, err := rabbitmq.NewEventProducer(cfg.Broker.URL, cfg.Broker.Exchange, portsLogger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, domain events are logged only", zap.Error(err))
		return rabbitmq.NewLogPublisher(portsLogger)
	}
	return producer
}

func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, sm *shutdown.Manager) (*Dependencies, error) {
	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	sm.RegisterNoErr("database pool", pool.Close)

	locker, redisClient, err := initLocker(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		sm.RegisterCloser("redis", redisClient)
	}

	publisher := initPublisher(cfg, logger)
	sm.RegisterCloser("event publisher", publisher)

	timeouts := resilience.DefaultTimeoutConfig()
	db := postgres.NewDBExecutor(pool)
	portsLogger := logging.NewZapLogger(logger)
	clock := timeutil.SystemClock{}

	payments := postgres.NewPaymentRepository(db)
	paymentSvc := paymentService.NewService(
		db,
		payments,
		postgres.NewClientDirectory(db),
		locker,
		publisher,
		clock,
		portsLogger,
	).WithTimeouts(timeouts)
	sweep := paymentService.NewOverdueSweep(db, payments, publisher, clock, portsLogger, cfg.Scheduler.SweepBatchSize)

	planSvc := subscriptionService.NewService(
		db,
		postgres.NewPlanRepository(db),
		postgres.NewSubscriptionStateRepository(db),
		portsLogger,
	)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	sm.RegisterNoErr("rate limiter", rateLimiter.Shutdown)

	health := observability.NewHealthChecker()
	health.Register("database", pool.Ping)
	if redisClient != nil {
		health.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(observability.HTTPMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		r.Use(middleware.Timeout(timeouts))
		paymentHandler.NewHandler(paymentSvc, logger).Routes(r)
		subscriptionHandler.NewHandler(planSvc, logger).Routes(r)
	})
	r.Route("/cron", func(r chi.Router) {
		cronHandler.NewOverdueHandler(sweep, logger, timeouts, cfg.Cron.Secret).Routes(r)
	})

	return &Dependencies{
		scheduler: cronHandler.NewScheduler(sweep, logger, timeouts),
		health:    health,
		router:    r,
	}, nil
}
