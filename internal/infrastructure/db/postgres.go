package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// applicationName identifies this service to both databases.
const applicationName = "rk-shortner"

const (
	postgresMinConns    = 2
	postgresIdleTimeout = 5 * time.Minute
	postgresPingTimeout = 5 * time.Second
)

type Postgres struct {
	Pool *pgxpool.Pool
}

// ConnectPostgres opens a pool and pings it. Each storage update pins one
// connection for its transaction, so a couple stay warm.
func ConnectPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MinConns = max(cfg.MinConns, postgresMinConns)
	cfg.MaxConnIdleTime = postgresIdleTimeout
	params := cfg.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	pg := &Postgres{Pool: pool}

	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := pg.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return pg, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
