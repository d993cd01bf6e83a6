package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsDir is the directory inside the embedded filesystem
const MigrationsDir = "migrations"

// Migrate applies every pending migration embedded in the binary
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return RunMigrations(ctx, pool, "up")
}

// RunMigrations runs a goose command (up, down, status, version, reset, ...)
// against the embedded migrations
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, command string, args ...string) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.RunContext(ctx, command, db, MigrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
