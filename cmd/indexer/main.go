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

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/pgstore"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpus := flag.String("corpus", "", "JSONL corpus to index (overrides index.corpus)")
	follow := flag.Bool("follow", false, "keep indexing documents from the kafka documents topic")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpus != "" {
		cfg.Index.Corpus = *corpus
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg, *follow); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
	slog.Info("indexer stopped")
}

func run(cfg *config.Config, follow bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	engine, err := indexer.NewEngine(cfg.Index, indexer.WithMetrics(m))
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		checker := health.NewChecker(0)
		checker.Register("memory_index", indexer.StoreCheck(engine.Index()))
		shutdown := metrics.StartServer(cfg.Metrics.Port,
			metrics.Route{Pattern: "/health/ready", Handler: checker.ReadyHandler()},
		)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	if cfg.Index.Corpus != "" {
		if _, err := engine.LoadCorpus(ctx, cfg.Index.Corpus); err != nil {
			return err
		}
	}

	if follow {
		if !cfg.Kafka.Enabled {
			return fmt.Errorf("-follow needs kafka.enabled")
		}
		if err := consume(ctx, cfg, engine); err != nil {
			return err
		}
	} else if _, err := engine.Flush(); err != nil {
		return err
	}

	if cfg.Index.Backend == config.BackendPostgres {
		return publishToPostgres(cfg, engine)
	}
	return nil
}

// consume indexes documents from Kafka until ctx is cancelled. The flush
// loop writes a segment every index.flushInterval and once more on exit.
func consume(ctx context.Context, cfg *config.Config, engine *indexer.Engine) error {
	flushed := engine.StartFlushLoop(ctx)
	c := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Documents, consumer.HandleMessage(engine))
	defer c.Close()

	slog.Info("indexer following documents topic",
		"topic", cfg.Kafka.Topics.Documents,
		"group", cfg.Kafka.ConsumerGroup,
		"flush_interval", cfg.Index.FlushInterval,
	)
	err := c.Start(ctx)
	<-flushed
	return err
}

// publishToPostgres replaces the PostgreSQL index with the memory index.
// It runs after shutdown too, so it uses its own context.
func publishToPostgres(cfg *config.Config, engine *indexer.Engine) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()

	store := pgstore.New(client)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return store.Import(ctx, engine.Snapshot())
}
