package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/adapters/postgres"
	"github.com/kevin07696/clientledger/internal/adapters/secrets"
	"github.com/kevin07696/clientledger/internal/config"
	"github.com/kevin07696/clientledger/pkg/logging"
)

var (
	flags   = flag.NewFlagSet("migrate", flag.ExitOnError)
	timeout = flags.Duration("timeout", 5*time.Minute, "abort if migrations take longer than this")
)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		os.Exit(2)
	}
	command := args[0]

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logger.Level, cfg.Logger.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := secrets.NewStore(ctx, cfg.Secrets, logger)
	if err != nil {
		logger.Fatal("Failed to initialize secret store", zap.Error(err))
	}
	if err := secrets.ResolveConfig(ctx, store, cfg); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.ConnectionString())
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 1

	pool, err := postgres.NewPool(ctx, poolCfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, command, args[1:]...); err != nil {
		logger.Error("Migration failed", zap.String("command", command), zap.Error(err))
		pool.Close()
		os.Exit(1)
	}
	logger.Info("Migration finished", zap.String("command", command))
}

func usage() {
	fmt.Print(`Usage: migrate [-timeout 5m] COMMAND

Connection settings are read from DB_* environment variables (or .env).

Commands:
    up                   Migrate the DB to the most recent version available
    up-by-one            Migrate the DB up by 1
    up-to VERSION        Migrate the DB to a specific VERSION
    down                 Roll back the version by 1
    down-to VERSION      Roll back to a specific VERSION
    redo                 Re-run the latest migration
    reset                Roll back all migrations
    status               Dump the migration status for the current DB
    version              Print the current version of the database

Examples:
    migrate up
    migrate down
    migrate status
`)
}
