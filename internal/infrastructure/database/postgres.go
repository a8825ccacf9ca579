package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/postgres.sql
var postgresSchema string

// OpenPostgres connects a pool to dsn, checks it with a ping and applies the
// chat schema. Every schema statement is idempotent so this runs on each boot.
// DSNs with SQLAlchemy-style driver suffixes (postgresql+asyncpg://) are
// accepted as they appear in shared .env files.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pool, nil
}

var driverSuffixes = strings.NewReplacer(
	"postgresql+asyncpg://", "postgresql://",
	"postgres+asyncpg://", "postgres://",
	"postgresql+pgx://", "postgresql://",
	"postgres+pgx://", "postgres://",
)

func normalizeDSN(dsn string) string {
	return driverSuffixes.Replace(strings.TrimSpace(dsn))
}
