package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotfinder/internal/config"
	"github.com/md-rashed-zaman/slotfinder/internal/db"
	"github.com/md-rashed-zaman/slotfinder/internal/events"
	"github.com/md-rashed-zaman/slotfinder/internal/fetch"
	"github.com/md-rashed-zaman/slotfinder/internal/handlers"
	"github.com/md-rashed-zaman/slotfinder/internal/httpx"
	"github.com/md-rashed-zaman/slotfinder/internal/otelx"
	"github.com/md-rashed-zaman/slotfinder/internal/runtime"
	"github.com/md-rashed-zaman/slotfinder/internal/schedule"
	"github.com/md-rashed-zaman/slotfinder/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "slotfinder")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	sourceURL, err := config.RequiredString("SCHEDULE_SOURCE_URL")
	if err != nil {
		panic(err)
	}
	client := fetch.NewClient(sourceURL, fetch.ClientConfig{
		Timeout:     config.Duration("FETCH_TIMEOUT_SECONDS", 10*time.Second),
		MaxAttempts: config.Int("FETCH_MAX_ATTEMPTS", 3),
	})

	// The snapshot archive is optional: without DATABASE_URL the service
	// runs purely from the remote source.
	var snapshots *storage.SnapshotRepository
	var pool *db.Pool
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err = db.Open(ctx, dbURL)
		if err != nil {
			logger.Error("db connection failed; running without snapshot archive", "err", err)
		} else {
			snapshots = storage.NewSnapshotRepository(pool)
			if err := snapshots.EnsureSchema(ctx); err != nil {
				logger.Error("snapshot schema setup failed; running without snapshot archive", "err", err)
				snapshots = nil
			}
		}
	}
	defer pool.Close()

	publisher := events.NewPublisher(config.String("KAFKA_BROKERS", ""), logger)
	defer func() { _ = publisher.Close() }()

	holder := schedule.NewHolder(nil)
	refresher := fetch.NewRefresher(client, holder, logger, fetch.RefresherConfig{
		Interval:      config.Duration("REFRESH_INTERVAL_SECONDS", 5*time.Minute),
		KeepSnapshots: config.Int("SNAPSHOT_KEEP", 20),
		Snapshots:     snapshots,
		Publisher:     publisher,
	})
	if err := refresher.Bootstrap(ctx); err != nil {
		logger.Error("schedule bootstrap failed; queries see an empty schedule until a refresh succeeds", "err", err)
	}
	go refresher.Run(ctx)

	availabilityHandler := handlers.NewAvailabilityHandler(holder, refresher, logger)

	checks := []runtime.ReadyCheck{{
		Name: "schedule",
		Check: func(context.Context) error {
			if len(holder.Current().Days()) == 0 {
				return errors.New("no schedule snapshot loaded")
			}
			return nil
		},
	}}
	if pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/availability/busy", availabilityHandler.Busy)
	mux.HandleFunc("/api/v1/availability/free", availabilityHandler.Free)
	mux.HandleFunc("/api/v1/availability/check", availabilityHandler.Check)
	mux.HandleFunc("/api/v1/availability/next", availabilityHandler.Next)
	mux.HandleFunc("/api/v1/schedule/refresh", availabilityHandler.Refresh)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id")),
			MaxAge:         time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 300)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT_SECONDS", 10*time.Second)),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "schedule_source", sourceURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func parseList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
