package db

import (
	"context"
	"fmt"
	"time"

	"sentiment-pattern-bot/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

var (
	parsePoolConfig = pgxpool.ParseConfig
	newPool         = pgxpool.NewWithConfig
	pingPool        = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// InitPostgres connects the shared pool. An empty DSN leaves Pool nil so the
// server can still run without persistence.
func InitPostgres(ctx context.Context, dsn string) error {
	if dsn == "" {
		logger.Get().Warn("postgres disabled: empty DATABASE_URL")
		return nil
	}

	cfg, err := parsePoolConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pingPool(pingCtx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("connect to postgres: %w", err)
	}

	Pool = pool
	logger.Get().Info("connected to postgres")
	return nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
