package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/adapters/postgres"
	"github.com/kevin07696/clientledger/internal/adapters/rabbitmq"
	"github.com/kevin07696/clientledger/internal/adapters/redislock"
	"github.com/kevin07696/clientledger/internal/adapters/secrets"
	"github.com/kevin07696/clientledger/internal/config"
	"github.com/kevin07696/clientledger/internal/domain/ports"
	paymentService "github.com/kevin07696/clientledger/internal/services/payment"
	serviceports "github.com/kevin07696/clientledger/internal/services/ports"
	subscriptionService "github.com/kevin07696/clientledger/internal/services/subscription"
	"github.com/kevin07696/clientledger/pkg/logging"
	"github.com/kevin07696/clientledger/pkg/timeutil"
)

// services is what the database-backed commands operate on
type services struct {
	payments serviceports.PaymentService
	sweeper  serviceports.OverdueSweeper
	plans    serviceports.PlanChangeService
	close    func()
}

// app carries state shared by every command. connect is swapped in tests.
type app struct {
	out     io.Writer
	connect func(ctx context.Context) (*services, error)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Operate on clientledger payments and plans",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out = cmd.OutOrStdout()
		},
	}

	rootCmd.AddCommand(planCmd(a))
	rootCmd.AddCommand(paymentsCmd(a))
	return rootCmd
}

// withServices opens the database for the duration of fn
func (a *app) withServices(ctx context.Context, fn func(*services) error) error {
	svc, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer svc.close()
	return fn(svc)
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// connectServices wires the services the same way the server does. Locks go
// through Redis when REDIS_ADDR is set so the CLI and the server exclude each
// other.
func connectServices(ctx context.Context) (*services, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logger.Level, cfg.Logger.Development)
	if err != nil {
		return nil, err
	}

	store, err := secrets.NewStore(ctx, cfg.Secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("secret store: %w", err)
	}
	if err := secrets.ResolveConfig(ctx, store, cfg); err != nil {
		return nil, err
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.ConnectionString())
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg, logger)
	if err != nil {
		return nil, err
	}

	portsLogger := logging.NewZapLogger(logger)
	var publisher ports.EventPublisher = rabbitmq.NewLogPublisher(portsLogger)
	if cfg.Broker.URL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.Broker.URL, cfg.Broker.Exchange, portsLogger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, events are logged only", zap.Error(err))
		} else {
			publisher = producer
		}
	}

	var locker ports.RecordLocker = redislock.NewLocalLocker()
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker = redislock.NewRedisLocker(redisClient, cfg.Redis.LockPrefix)
	}

	db := postgres.NewDBExecutor(pool)
	clock := timeutil.SystemClock{}
	payments := postgres.NewPaymentRepository(db)

	return &services{
		payments: paymentService.NewService(
			db,
			payments,
			postgres.NewClientDirectory(db),
			locker,
			publisher,
			clock,
			portsLogger,
		),
		sweeper: paymentService.NewOverdueSweep(db, payments, publisher, clock, portsLogger, cfg.Scheduler.SweepBatchSize),
		plans: subscriptionService.NewService(
			db,
			postgres.NewPlanRepository(db),
			postgres.NewSubscriptionStateRepository(db),
			portsLogger,
		),
		close: func() {
			_ = publisher.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
			pool.Close()
			_ = logger.Sync()
		},
	}, nil
}
