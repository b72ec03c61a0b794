// Command ingestion queues documents on the documents topic for the
// indexer's follow mode. With -corpus it publishes a JSONL corpus and
// exits; otherwise it serves POST /api/v1/documents.
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

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpus := flag.String("corpus", "", "publish this JSONL corpus and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Kafka.Enabled {
		slog.Error("ingestion needs kafka.enabled")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Documents)
	defer producer.Close()
	pub := publisher.New(producer, validator.New(cfg.Retrieval.Fields), 0)

	if *corpus != "" {
		if err := publishCorpus(ctx, pub, *corpus); err != nil {
			slog.Error("corpus publish failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, pub); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}

func publishCorpus(ctx context.Context, pub *publisher.Publisher, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()
	report, err := pub.PublishCorpus(ctx, f)
	if err != nil {
		return err
	}
	slog.Info("corpus queued for indexing",
		"path", path,
		"published", report.Published,
		"rejected", report.Rejected,
	)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, pub *publisher.Publisher) error {
	m := metrics.New()
	checker := health.NewChecker(0)
	checker.Register("kafka", kafka.HealthCheck(cfg.Kafka))

	h := handler.New(pub)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("ingestion service listening", "addr", server.Addr, "topic", cfg.Kafka.Topics.Documents)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
