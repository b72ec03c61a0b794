// Command qryeval evaluates a query file against an index and writes a TREC
// run file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/qry"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/batch"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	queryPath := flag.String("queries", "", "query file (overrides batch.queryFile)")
	outputPath := flag.String("output", "", "TREC run file (overrides batch.outputFile)")
	modelName := flag.String("model", "", "retrieval model (overrides retrieval.model)")
	runID := flag.String("run-id", "", "run id written in the last column")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *queryPath != "" {
		cfg.Batch.QueryFile = *queryPath
	}
	if *outputPath != "" {
		cfg.Batch.OutputFile = *outputPath
	}
	if *modelName != "" {
		cfg.Retrieval.Model = *modelName
	}
	if *runID != "" {
		cfg.Batch.RunID = *runID
	}

	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("batch evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Batch.QueryFile == "" {
		return fmt.Errorf("no query file: set batch.queryFile or -queries")
	}
	model, err := qry.ModelByName(cfg.Retrieval.Model, cfg.Retrieval)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	store, closeStore, err := indexer.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer closeStore()

	if cfg.Metrics.Enabled {
		checker := health.NewChecker(0)
		checker.Register("index", indexer.StoreCheck(store))
		shutdown := metrics.StartServer(cfg.Metrics.Port,
			metrics.Route{Pattern: "/health/ready", Handler: checker.ReadyHandler()},
		)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	agg := analytics.NewAggregator()
	var tracker analytics.Tracker = agg
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.EvaluationEvents)
		defer producer.Close()
		collectorCtx, stopCollector := context.WithCancel(ctx)
		bc := collector.NewBatchCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		bc.Start(collectorCtx)
		defer func() {
			stopCollector()
			bc.Close()
		}()
		tracker = analytics.Multi(agg, bc)
	}

	p := parser.New(store, parser.Options{
		DefaultField: cfg.Retrieval.DefaultField,
		Fields:       cfg.Retrieval.Fields,
	})
	exec := executor.New(store, p,
		executor.WithMetrics(m),
		executor.WithTimeout(cfg.Search.QueryTimeout),
	)
	driver := batch.NewDriver(exec, model, cfg.Batch, tracker)

	slog.Info("evaluating query file",
		"queries", cfg.Batch.QueryFile,
		"output", cfg.Batch.OutputFile,
		"model", model.Params(),
		"backend", cfg.Index.Backend,
	)
	if err := driver.RunFile(ctx, cfg.Batch.QueryFile, cfg.Batch.OutputFile); err != nil {
		return err
	}

	stats := agg.Stats()
	slog.Info("run written",
		"output", cfg.Batch.OutputFile,
		"queries", stats.TotalQueries,
		"zero_result", stats.ZeroResultCount,
		"avg_matched", stats.AvgMatched,
		"p95_latency_ms", stats.P95LatencyMs,
	)
	return nil
}
