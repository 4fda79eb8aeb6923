package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/config"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/auth"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/telemetry"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/messaging/kafka"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gate"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gateway"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/ledger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/links"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/settings"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/users"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	redisStorage "github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/redis"
	httpTransport "github.com/r29878448-pixel/Rk-shortner-sub000/internal/transport/http"
	"go.uber.org/zap"
)

const (
	storageStartupTimeout = 30 * time.Second
	adminBootstrapTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		logger.Error("Application exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
	logger.Sync()
}

// run serves until ctx is cancelled, then drains requests before closing
// the publisher, the storage connections and the tracer, in that order.
func run(ctx context.Context, cfg *config.Config) error {
	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.String("storage", cfg.Storage.Backend),
	)

	if cfg.OTel.Enabled {
		shutdownTracer, err := telemetry.Init(ctx, telemetry.Options{
			Endpoint:    cfg.OTel.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Env,
			SampleRatio: cfg.OTel.SampleRatio,
		})
		if err != nil {
			logger.Warn("Tracing disabled", zap.Error(err))
		} else {
			defer flushTracer(shutdownTracer, cfg.Server.ShutdownTimeout)
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, storageStartupTimeout)
	rs, err := initStorage(startCtx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer rs.Close()

	var publisher ledger.Publisher
	if cfg.Kafka.Enabled {
		clicks := kafka.NewClickPublisher(cfg.Kafka.Brokers, cfg.Kafka.ClickTopic, cfg.Kafka.WriteTimeout)
		defer func() {
			if err := clicks.Close(); err != nil {
				logger.Warn("Failed to close click publisher", zap.Error(err))
			}
		}()
		publisher = clicks
		logger.Info("Publishing click events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.ClickTopic),
		)
	}

	services, err := buildServices(ctx, cfg, rs, publisher)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           httpTransport.NewRouter(cfg, services),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", server.Addr),
			zap.String("public", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelDrain()
	if err := server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("drain http server: %w", err)
	}
	return nil
}

func buildServices(ctx context.Context, cfg *config.Config, rs *runtimeStorage, publisher ledger.Publisher) (httpTransport.Services, error) {
	store := storage.New(rs.backend, cfg.Settings)

	linkSvc := links.NewService(store, links.NewCryptoSlugger(), cfg.Shortener.SlugLength, cfg.Shortener.BaseURL)
	if rs.stats != nil {
		linkSvc.WithStatsReader(rs.stats)
	}
	settingsSvc := settings.NewService(store)
	usersSvc := users.NewService(store, users.NewHandoff(cfg.Handoff.BaseURL))

	if cfg.Auth.AdminEmail != "" {
		bootCtx, cancel := context.WithTimeout(ctx, adminBootstrapTimeout)
		admin, err := usersSvc.EnsureAdmin(bootCtx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		cancel()
		if err != nil {
			return httpTransport.Services{}, fmt.Errorf("bootstrap admin: %w", err)
		}
		logger.Info("Admin account ready", zap.String("user_id", admin.ID))
	}

	return httpTransport.Services{
		Links:    linkSvc,
		Gate:     gate.NewEngine(rs.sessions, linkSvc, settingsSvc, ledger.NewService(store, publisher)),
		Gateway:  gateway.NewService(usersSvc, linkSvc),
		Users:    usersSvc,
		Settings: settingsSvc,
		Tokens:   auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL),
		CreateLimiter: redisStorage.NewLimiter(rs.redis,
			redisStorage.PerMinute(cfg.Security.CreateRate, cfg.Security.CreateBurst)),
		Readiness: rs.readiness,
	}, nil
}

func flushTracer(shutdown func(context.Context) error, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("Tracer shutdown failed", zap.Error(err))
	}
}
