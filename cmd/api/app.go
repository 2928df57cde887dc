package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/singme/internal/api"
	"github.com/onnwee/singme/internal/config"
	"github.com/onnwee/singme/internal/db"
	"github.com/onnwee/singme/internal/health"
	"github.com/onnwee/singme/internal/lock"
	"github.com/onnwee/singme/internal/middleware"
	"github.com/onnwee/singme/internal/ranking"
	"github.com/onnwee/singme/internal/recommendation"
	"github.com/onnwee/singme/internal/tracing"
	"github.com/onnwee/singme/migrations"
)

const (
	serviceName    = "singme-api"
	serviceVersion = "0.1.0"
	lockKeyPrefix  = "singme:lock:"
)

// app is the wired server: the HTTP handler plus everything that must be
// released on shutdown.
type app struct {
	handler  http.Handler
	registry *prometheus.Registry
	closers  []func() error
	logger   *slog.Logger
}

// Close releases dependencies in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release dependency", "error", err)
		}
	}
}

// newApp builds the store, locker, metrics and router described by cfg.
// An empty DatabaseURL selects the in-memory store and an empty RedisURL the
// in-process locker.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	provider, err := tracing.NewProvider(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Enabled:        cfg.TracingEnabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.TracingExporter,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
		InsecureMode:   cfg.TracingInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		return provider.Shutdown(context.Background())
	})

	var checkers []api.HealthChecker

	repo, conn, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if conn != nil {
		a.closers = append(a.closers, conn.Close)
		checkers = append(checkers, health.NewDBChecker(conn))
	}

	locker, client, err := openLocker(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if client != nil {
		a.closers = append(a.closers, client.Close)
		checkers = append(checkers, health.NewRedisChecker(client))
	}

	// Calibration errors are not fatal: LoadCalibration falls back to defaults.
	calibration, err := ranking.LoadCalibration(cfg.SelectionCalibrationPath)
	if err != nil {
		logger.Warn("using default selection calibration", "error", err)
	}

	recMetrics := recommendation.NewMetrics()
	httpMetrics := middleware.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{recMetrics.Register, httpMetrics.Register} {
		if err := register(a.registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := recommendation.NewService(recommendation.ServiceConfig{
		Repository:  repo,
		Locker:      locker,
		Calibration: calibration,
		Metrics:     recMetrics,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	router := api.NewRouter(api.RouterConfig{
		Recommendations: api.NewRecommendationHandlers(svc),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			Checkers:       checkers,
			MetricsEnabled: true,
		}),
		Metrics: promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	})

	a.handler = middleware.Chain(router,
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.Recovery(logger, httpMetrics),
		middleware.Tracing(serviceName),
		middleware.HTTPMetrics(httpMetrics),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)),
	)
	return a, nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (recommendation.Repository, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory recommendation store")
		return recommendation.NewInMemoryRepository(), nil, nil
	}

	if _, err := db.Migrate(ctx, cfg.DatabaseURL, migrations.FS, logger); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPoolConfig())
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using postgres recommendation store")
	return recommendation.NewPostgresRepository(conn, logger), conn, nil
}

func openLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lock.Locker, *redis.Client, error) {
	if cfg.RedisURL == "" {
		if cfg.DatabaseURL != "" {
			logger.Warn("REDIS_URL is not set: votes are serialized within this process only, so replicas sharing the database can lose votes")
		}
		return lock.NewKeyedMutex(), nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to connect to redis: %w", err), client.Close())
	}

	logger.Info("using redis vote locks")
	return lock.NewRedisLocker(client, lock.RedisLockerConfig{
		Prefix: lockKeyPrefix,
		TTL:    cfg.VoteLockTTL,
	}, logger), client, nil
}
