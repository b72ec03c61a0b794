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

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"backend", cfg.Index.Backend,
		"model", cfg.Retrieval.Model,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checker := health.NewChecker(0)

	store, closeStore, err := indexer.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer closeStore()
	checker.Register("index", indexer.StoreCheck(store))

	p := parser.New(store, parser.Options{
		DefaultField: cfg.Retrieval.DefaultField,
		Fields:       cfg.Retrieval.Fields,
	})
	exec := executor.New(store, p,
		executor.WithMetrics(m),
		executor.WithTimeout(cfg.Search.QueryTimeout),
	)

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", redisClient.HealthCheck())
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	agg := analytics.NewAggregator()
	tracker, waitAnalytics := startAnalytics(ctx, cfg, agg, checker)
	defer waitAnalytics()

	h := handler.New(exec, queryCache, tracker, cfg.Retrieval, cfg.Search,
		handler.WithStatsInvalidator(store),
	)
	statsH := analytics.NewHandler(agg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/stats", statsH.Stats)
	mux.HandleFunc("GET /api/v1/stats/models", statsH.Models)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
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
	stop()
	slog.Info("search service stopped")
}

// startAnalytics wires evaluation events into agg. With Kafka enabled the
// events go through the evaluation events topic and are folded back into
// agg by a consumer; otherwise agg tracks them directly. The returned
// function waits for background work after ctx is cancelled.
func startAnalytics(ctx context.Context, cfg *config.Config, agg *analytics.Aggregator,
	checker *health.Checker) (analytics.Tracker, func()) {
	var waits []func()
	wait := func() {
		for _, w := range waits {
			w()
		}
	}

	var tracker analytics.Tracker = agg
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.EvaluationEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		bc := collector.NewBatchCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		bc.Start(ctx)
		waits = append(waits, func() {
			bc.Close()
			if err := producer.Close(); err != nil {
				slog.Error("closing event producer", "error", err)
			}
		})
		tracker = bc

		consumerCfg := cfg.Kafka
		consumerCfg.ConsumerGroup = cfg.Kafka.ConsumerGroup + "-analytics"
		consumer := kafka.NewConsumer(consumerCfg, topic, analytics.HandleEvent(agg))
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := consumer.Start(ctx); err != nil {
				slog.Error("evaluation event consumer stopped", "error", err)
			}
		}()
		waits = append(waits, func() {
			<-done
			if err := consumer.Close(); err != nil {
				slog.Error("closing event consumer", "error", err)
			}
		})
		slog.Info("evaluation events routed through kafka", "topic", topic)
	}

	if cfg.Analytics.Snapshot {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, stats snapshots disabled", "error", err)
			return tracker, wait
		}
		snapshots := aggregator.NewStore(db)
		if err := snapshots.Migrate(ctx); err != nil {
			slog.Warn("stats snapshot migration failed, snapshots disabled", "error", err)
			db.Close()
			return tracker, wait
		}
		checker.Register("postgres", db.HealthCheck())
		done := snapshots.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		waits = append(waits, func() {
			<-done
			db.Close()
		})
	}
	return tracker, wait
}
