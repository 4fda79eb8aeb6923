package main

import (
	"context"
	"fmt"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/config"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/db"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gate"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/links"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/memory"
	mongoStorage "github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/mongo"
	postgresStorage "github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/postgres"
	redisStorage "github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/redis"
	httpTransport "github.com/r29878448-pixel/Rk-shortner-sub000/internal/transport/http"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// runtimeStorage is everything main needs from the selected backends.
type runtimeStorage struct {
	backend  storage.Backend
	sessions gate.SessionStore
	stats    links.StatsReader

	// redis is nil when REDIS_URL is not configured.
	redis goredis.UniversalClient

	// readiness holds a ping per connected dependency.
	readiness map[string]httpTransport.Check

	closers []func()
}

func (rs *runtimeStorage) Close() {
	for i := len(rs.closers) - 1; i >= 0; i-- {
		rs.closers[i]()
	}
}

func initStorage(ctx context.Context, cfg *config.Config) (*runtimeStorage, error) {
	rs := &runtimeStorage{readiness: map[string]httpTransport.Check{}}

	if cfg.Redis.URL != "" {
		client, err := redisStorage.Connect(ctx, redisStorage.Config{
			URL:          cfg.Redis.URL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: 2,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rs.redis = client
		rs.closers = append(rs.closers, func() { _ = client.Close() })
		rs.readiness["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	needMongo := cfg.Storage.Backend == config.StorageMongo ||
		cfg.Shortener.StatsSource == config.StatsSourceProjection
	var mongoConn *db.Mongo
	if needMongo {
		conn, err := db.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			rs.Close()
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		mongoConn = conn
		rs.closers = append(rs.closers, func() { _ = conn.Disconnect() })
		rs.readiness["mongo"] = conn.Ping
	}

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		rs.backend = memory.New()
	case config.StorageRedis:
		rs.backend = redisStorage.NewBackend(rs.redis, cfg.Redis.KeyPrefix)
	case config.StorageMongo:
		if err := mongoConn.RequireTransactions(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("mongo storage backend: %w", err)
		}
		rs.backend = mongoStorage.NewBackend(mongoConn)
	case config.StoragePostgres:
		pgConn, err := db.ConnectPostgres(ctx, cfg.Postgres.URL)
		if err != nil {
			rs.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rs.closers = append(rs.closers, pgConn.Close)
		rs.readiness["postgres"] = pgConn.Ping

		backend, err := postgresStorage.NewBackend(ctx, pgConn)
		if err != nil {
			rs.Close()
			return nil, fmt.Errorf("init postgres backend: %w", err)
		}
		rs.backend = backend
	default:
		rs.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if rs.redis != nil {
		rs.sessions = redisStorage.NewSessions(rs.redis, cfg.Redis.KeyPrefix, cfg.Gate.SessionTTL)
	} else {
		rs.sessions = gate.NewMemorySessions(cfg.Gate.SessionTTL)
	}

	if cfg.Shortener.StatsSource == config.StatsSourceProjection {
		statsRepo, err := mongoStorage.NewClickStatsRepository(mongoConn)
		if err != nil {
			rs.Close()
			return nil, fmt.Errorf("init click stats repository: %w", err)
		}
		rs.stats = statsRepo
	}

	logger.Info("Storage backend selected",
		zap.String("backend", cfg.Storage.Backend),
		zap.Bool("redis", rs.redis != nil),
		zap.String("stats_source", cfg.Shortener.StatsSource),
	)
	return rs, nil
}
