package aggregator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/postgres"
)

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	host := os.Getenv("TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("skipping postgres test: TEST_POSTGRES_HOST not set")
	}
	cfg := config.PostgresConfig{
		Host:         host,
		Port:         5432,
		Database:     "qryeval_test",
		User:         "qryeval",
		Password:     "localdev",
		SSLMode:      "disable",
		MaxOpenConns: 2,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("skipping postgres test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fixedStats struct{ stats analytics.AggregatedStats }

func (f fixedStats) Stats() analytics.AggregatedStats { return f.stats }

func TestSnapshotRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	store := NewStore(db)
	require.NoError(t, store.Migrate(ctx))

	agg := analytics.NewAggregator()
	agg.Track(analytics.EvaluationEvent{Type: analytics.EventEvaluation, Query: "apple", Model: "bm25", Matched: 3})
	require.NoError(t, store.SaveSnapshot(ctx, agg.Stats()))

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(1), latest.QueriesByModel["bm25"])
}

func TestPeriodicSaveWritesFinalSnapshot(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := store.StartPeriodicSave(ctx, fixedStats{analytics.AggregatedStats{TotalQueries: 42}}, time.Hour)
	cancel()
	<-done

	latest, err := store.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(42), latest.TotalQueries)
}
