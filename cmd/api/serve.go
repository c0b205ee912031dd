package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cimillas/ticket-booking/internal/app"
	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/config"
	"github.com/cimillas/ticket-booking/internal/lock"
	"github.com/cimillas/ticket-booking/internal/storage/memory"
	"github.com/cimillas/ticket-booking/internal/storage/postgres"
	"github.com/cimillas/ticket-booking/internal/telemetry"
	transporthttp "github.com/cimillas/ticket-booking/internal/transport/http"
	"github.com/cimillas/ticket-booking/migrations"
)

const startupTimeout = 10 * time.Second

// stores groups the repositories one backend provides.
type stores struct {
	events   app.EventRepository
	admin    app.EventAdminRepository
	bookings app.BookingRepository
	stats    app.StatsRepository
	close    func()
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	clk := clock.NewSystem()

	var provider *telemetry.Provider
	if cfg.Metrics {
		var err error
		provider, err = telemetry.Setup(ctx, telemetry.Options{
			ServiceName:    "booking-api",
			RuntimeMetrics: cfg.RuntimeMetrics,
			Logger:         logger,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}

	st, err := openStores(ctx, cfg, clk, logger)
	if err != nil {
		return err
	}
	defer st.close()

	locks, closeLocks, err := newLockManager(ctx, cfg, clk, logger)
	if err != nil {
		return err
	}
	defer closeLocks()

	bookingSvc := app.NewBookingService(st.events, st.bookings, locks, clk,
		app.WithLockTTL(cfg.LockTTL),
		app.WithLockWait(cfg.LockWait),
		app.WithLogger(logger.With().Str("component", "booking").Logger()),
	)
	eventSvc := app.NewEventService(st.admin, clk)
	healthSvc := app.NewHealthService(st.stats, locks, clk)

	opts := transporthttp.RouterOptions{
		Logger:      logger.With().Str("component", "http").Logger(),
		CORSOrigins: cfg.CORSOrigins,
	}
	if provider != nil {
		opts.Metrics = provider.Handler()
	}
	if cfg.RateLimit {
		opts.GlobalLimiter = transporthttp.NewGlobalRateLimiter()
	}
	if cfg.BookingRateLimit {
		opts.BookingLimiter = transporthttp.NewBookingRateLimiter()
	}
	handler := transporthttp.NewRouter(transporthttp.Services{
		Events:   eventSvc,
		Bookings: bookingSvc,
		Health:   healthSvc,
	}, opts)
	if provider != nil {
		handler = otelhttp.NewHandler(handler, "booking-api",
			otelhttp.WithMeterProvider(provider.MeterProvider()),
		)
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info().
		Str("listen", cfg.Listen).
		Str("store", cfg.Store).
		Str("lock_backend", locks.ActiveBackend(ctx)).
		Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg config.Config, clk clock.Clock, logger zerolog.Logger) (stores, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		store := memory.NewStore(clk)
		return stores{events: store, admin: store, bookings: store, stats: store, close: func() {}}, nil
	}

	pool, err := openPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	if cfg.MigrateOnStart {
		startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		if _, err := migrations.Apply(startupCtx, pool, logger); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("apply migrations: %w", err)
		}
	}
	events := postgres.NewEventRepository(pool)
	return stores{
		events:   events,
		admin:    events,
		bookings: postgres.NewBookingRepository(pool),
		stats:    postgres.NewStatsRepository(pool),
		close:    pool.Close,
	}, nil
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(startupCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

// newLockManager always has the in-process backend; redis is added as the
// shared backend when configured. An unreachable redis at startup is not
// fatal: the manager falls back until it answers.
func newLockManager(ctx context.Context, cfg config.Config, clk clock.Clock, logger zerolog.Logger) (*lock.Manager, func(), error) {
	lockLogger := logger.With().Str("component", "lock").Logger()
	opts := []lock.Option{lock.WithLogger(lockLogger)}
	closeFn := func() {}

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis-url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		backend := lock.NewRedisBackend(client, lock.WithProbeInterval(cfg.RedisProbeInterval))
		if !backend.Available(ctx) {
			lockLogger.Warn().Str("addr", redisOpts.Addr).Msg("redis unreachable at startup, using in-process locks until it recovers")
		}
		opts = append(opts, lock.WithSharedBackend(backend))
		closeFn = func() { _ = client.Close() }
	} else {
		lockLogger.Warn().Msg("no redis-url configured, leases are only exclusive within this process")
	}

	return lock.NewManager(lock.NewMemoryBackend(clk), opts...), closeFn, nil
}
