// Command searcher serves the Quran search API. It loads the corpus from the
// configured source, builds the in-memory index, and answers search, chapter
// and topic queries over HTTP. Rebuilds are triggered by POST
// /api/v1/admin/reload or by corpus-reload events on Kafka.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/resilience"
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
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
		"workers", cfg.Index.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	source, err := corpus.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open corpus source", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	engine := indexer.NewEngine(cfg.Index, cfg.Normalization)
	reloader := indexer.NewReloader(engine, source, m)

	queryCache, redisClient := newQueryCache(ctx, cfg, m)
	if redisClient != nil {
		defer redisClient.Close()
	}
	if queryCache != nil {
		reloader.OnSwap(func(ctx context.Context, report indexer.BuildReport) {
			if err := queryCache.Invalidate(ctx); err != nil {
				slog.Warn("cache invalidation after reload failed", "error", err)
			}
		})
	}

	var publishers []analytics.Publisher
	aggregator := analytics.NewAggregator(cfg.Analytics.MaxLatencies)
	publishers = append(publishers, aggregator)
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		batch := collector.NewBatchPublisher(producer, 100, 5*time.Second)
		batch.Start(ctx)
		defer batch.Close()
		publishers = append(publishers, batch)
	}
	events := analytics.NewCollector(cfg.Analytics.BufferSize, publishers...)
	if cfg.Analytics.Enabled {
		events.Start(ctx)
		defer events.Close()
		reloader.OnSwap(func(ctx context.Context, report indexer.BuildReport) {
			events.Track(analytics.NewBuildEvent(report, nil))
		})
		reloader.OnFailure(func(ctx context.Context, err error) {
			events.Track(analytics.NewBuildEvent(indexer.BuildReport{}, err))
		})
	}

	// Serve from the start; /health/ready reports 503 until the first build
	// has been published.
	go func() {
		if _, err := reloader.Reload(ctx); err != nil {
			slog.Error("initial index build failed", "error", err)
		}
	}()

	if cfg.Kafka.Enabled() {
		group := kafka.InstanceGroup(cfg.Kafka.ConsumerGroup)
		reloads := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CorpusReload, group, consumer.HandleMessage(reloader)))
		go func() {
			if err := reloads.Start(ctx); err != nil {
				slog.Error("reload consumer error", "error", err)
			}
		}()
		slog.Info("reload consumer started", "topic", cfg.Kafka.Topics.CorpusReload, "group", group)
	}

	checker := health.NewChecker()
	checker.Register("index_engine", health.Ready(engine.Ready, "index published", "index not built"))
	checker.Register("redis", health.Optional(redisClient != nil, func(ctx context.Context) error {
		return redisClient.Ping(ctx)
	}))
	if source.Postgres != nil {
		checker.Register("postgres", health.Optional(true, source.Postgres.Ping))
	}

	opts := []handler.Option{handler.WithReloader(reloader), handler.WithMetrics(m)}
	if queryCache != nil {
		opts = append(opts, handler.WithCache(queryCache))
	}
	if cfg.Analytics.Enabled {
		opts = append(opts, handler.WithTracker(events))
	}
	exec := executor.New(engine, cfg.Search.HighlightPre, cfg.Search.HighlightPost)
	h := handler.New(exec, engine, cfg.Search, opts...)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator, analytics.WithIndex(engine)).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler(prometheus.DefaultGatherer))
	}

	trustedProxies, err := cfg.Server.RateLimit.Proxies()
	if err != nil {
		slog.Error("invalid trusted proxies", "error", err)
		os.Exit(1)
	}
	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit.Enabled() {
		limiter = ratelimit.New(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
		defer limiter.Close()
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.RateLimit(limiter, trustedProxies)(chain)
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// newQueryCache prefers Redis, shared by every searcher, and falls back to a
// process-local LRU when Redis is not configured or unreachable.
func newQueryCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*cache.QueryCache, *pkgredis.Client) {
	if cfg.Redis.Addr != "" {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err == nil {
			breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
				OnStateChange: func(name string, from, to resilience.State) {
					m.ObserveCircuit(name, to.String())
				},
			})
			store := cache.NewBreakerStore(cache.NewRedisStore(client, cfg.Redis.CacheTTL), breaker)
			slog.Info("search cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
			return cache.New(store, cfg.Normalization), client
		}
		slog.Warn("redis unavailable, falling back to local cache", "error", err)
	}
	if cfg.Redis.LocalCacheSize <= 0 {
		slog.Info("search cache disabled")
		return nil, nil
	}
	store, err := cache.NewLocalStore(cfg.Redis.LocalCacheSize)
	if err != nil {
		slog.Warn("local cache unavailable", "error", err)
		return nil, nil
	}
	slog.Info("search cache enabled", "backend", "local", "size", cfg.Redis.LocalCacheSize)
	return cache.New(store, cfg.Normalization), nil
}
