package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	Location        string // postgres:// DSN or SQLite file path / URI
	InsertStatement string
	DialTimeout     time.Duration
}

// DialectFor picks the SQL dialect implied by a storage location.
func DialectFor(location string) string {
	l := strings.ToLower(strings.TrimSpace(location))
	if strings.HasPrefix(l, "postgres://") || strings.HasPrefix(l, "postgresql://") {
		return dialect.Postgres
	}
	return dialect.SQLite
}

// Open connects to the configured store and wraps it as an ent SQL driver.
// The returned close func releases everything Open acquired.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*entsql.Driver, func(), error) {
	if DialectFor(cfg.Location) == dialect.Postgres {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*entsql.Driver, func(), error) {
	pc, err := pgxpool.ParseConfig(cfg.Location)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, nil, err
	}
	pc.MaxConns = 1
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-scanner"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, nil, err
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	drv := entsql.OpenDB(dialect.Postgres, db)
	return drv, func() { closeDriver(drv, logger); pool.Close() }, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*entsql.Driver, func(), error) {
	db, err := sql.Open("sqlite", cfg.Location)
	if err != nil {
		logger.Error("failed to open sqlite database", "location", cfg.Location, "error", err)
		return nil, nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	drv := entsql.OpenDB(dialect.SQLite, db)
	return drv, func() { closeDriver(drv, logger) }, nil
}

func closeDriver(drv *entsql.Driver, logger *slog.Logger) {
	if err := drv.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}

// HealthCheck opens the store and pings it.
func HealthCheck(ctx context.Context, cfg Config, timeout time.Duration, logger *slog.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	drv, closeFn, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()
	logger.Debug("pinging database")
	return drv.DB().PingContext(ctx)
}
