// Package indexer builds indexes from a corpus and opens the posting store
// selected by configuration.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/pgstore"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/postgres"
)

// OpenStore opens the configured backend for querying. The returned store
// memoises collection statistics; close releases the backend.
func OpenStore(ctx context.Context, cfg *config.Config) (*index.CachedStats, func() error, error) {
	logger := slog.Default().With("component", "indexer", "backend", cfg.Index.Backend)
	switch cfg.Index.Backend {
	case config.BackendMemory:
		if cfg.Index.Corpus == "" {
			return nil, nil, fmt.Errorf("memory backend needs index.corpus")
		}
		engine, err := NewEngine(cfg.Index)
		if err != nil {
			return nil, nil, err
		}
		if _, err := engine.LoadCorpus(ctx, cfg.Index.Corpus); err != nil {
			return nil, nil, err
		}
		return index.NewCachedStats(engine.Index()), func() error { return nil }, nil

	case config.BackendSegment:
		path := filepath.Join(cfg.Index.DataDir, cfg.Index.Segment)
		if cfg.Index.Segment == "" {
			latest, err := segment.LatestSegment(cfg.Index.DataDir)
			if err != nil {
				return nil, nil, err
			}
			path = latest
		}
		reader, err := segment.OpenReader(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("segment opened",
			"path", reader.Path(),
			"terms", reader.Terms(),
			"created_at", reader.CreatedAt().UTC().Format(time.RFC3339),
		)
		return index.NewCachedStats(reader), reader.Close, nil

	case config.BackendPostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("postgres store opened", "database", cfg.Postgres.Database)
		return index.NewCachedStats(pgstore.New(client)), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

// StoreCheck reports the store as down when it cannot answer a statistics
// query.
func StoreCheck(store index.Store) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		n, err := store.NumDocs(ctx)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		if n == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", n)}
	}
}
