// Command analytics starts the standalone analytics aggregation service.
//
// It consumes search and index-build events that searchers publish to Kafka,
// aggregates them in memory (query totals, latency percentiles, cache hit
// rate, top and zero-result queries) and serves them at GET /api/v1/analytics.
// When PostgreSQL is reachable the totals are snapshotted periodically and
// restored on start.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	if !cfg.Kafka.Enabled() {
		slog.Error("analytics service requires kafka.brokers")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	agg := analytics.NewAggregator(cfg.Analytics.MaxLatencies)

	var db *postgres.Client
	if cfg.Analytics.SnapshotInterval > 0 {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			store := aggregator.NewStore(db.DB)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Error("failed to prepare analytics schema", "error", err)
				os.Exit(1)
			}
			if prev, err := store.LatestSnapshot(ctx); err != nil {
				slog.Warn("could not restore analytics snapshot", "error", err)
			} else if prev != nil {
				agg.Seed(*prev)
			}
			store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		}
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, "", analytics.HandleEvent(agg))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	checker := health.NewChecker()
	checker.Register("postgres", health.Optional(db != nil, func(ctx context.Context) error {
		return db.Ping(ctx)
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins))(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
