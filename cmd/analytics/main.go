// Command analytics aggregates evaluation events published by the search
// service and qryeval runs, and serves the running statistics.
package main

import (
	"context"
	"encoding/json"
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
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/postgres"
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
	if !cfg.Kafka.Enabled {
		slog.Error("analytics service needs kafka.enabled")
		os.Exit(1)
	}
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	agg := analytics.NewAggregator()
	checker := health.NewChecker(0)
	checker.Register("kafka", kafka.HealthCheck(cfg.Kafka))

	topic := cfg.Kafka.Topics.EvaluationEvents
	consumerCfg := cfg.Kafka
	consumerCfg.ConsumerGroup = cfg.Kafka.ConsumerGroup + "-analytics-service"
	consumer := kafka.NewConsumer(consumerCfg, topic, analytics.HandleEvent(agg))
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("evaluation event consumer stopped", "error", err)
		}
	}()
	slog.Info("consuming evaluation events", "topic", topic, "group", consumerCfg.ConsumerGroup)

	mux := http.NewServeMux()
	statsH := analytics.NewHandler(agg)
	mux.HandleFunc("GET /api/v1/stats", statsH.Stats)
	mux.HandleFunc("GET /api/v1/stats/models", statsH.Models)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	closedDone := make(chan struct{})
	close(closedDone)
	var snapshotsDone <-chan struct{} = closedDone
	if cfg.Analytics.Snapshot {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := aggregator.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate snapshot table", "error", err)
			os.Exit(1)
		}
		checker.Register("postgres", db.HealthCheck())
		mux.HandleFunc("GET /api/v1/stats/snapshot", snapshotHandler(store))
		snapshotsDone = store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
	}

	var chain http.Handler = mux
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	stop()
	<-consumed
	if err := consumer.Close(); err != nil {
		slog.Error("closing consumer", "error", err)
	}
	<-snapshotsDone
	slog.Info("analytics service stopped")
}

// snapshotHandler serves the most recent persisted statistics, which
// survive restarts of this service.
func snapshotHandler(store *aggregator.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.LatestSnapshot(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			status := apperrors.HTTPStatusCode(err)
			logger.FromContext(r.Context()).Error("reading snapshot failed", "error", err)
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(status)})
			return
		}
		if stats == nil {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no snapshot saved yet"})
			return
		}
		_ = json.NewEncoder(w).Encode(stats)
	}
}
