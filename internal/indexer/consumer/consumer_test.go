package consumer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
)

func TestHandleMessageIndexesDocuments(t *testing.T) {
	engine, err := indexer.NewEngine(config.IndexConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	handle := HandleMessage(engine)
	ctx := context.Background()

	require.NoError(t, handle(ctx, []byte("GX1"), []byte(`{"id":"GX1","fields":{"body":"distributed search"}}`)))
	require.NoError(t, handle(ctx, []byte("bad"), []byte(`{not json`)))
	require.NoError(t, handle(ctx, []byte("empty"), []byte(`{"id":"GX2"}`)))

	n, err := engine.Index().NumDocs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	df, err := engine.Index().DocumentFrequency(ctx, "body", "search")
	require.NoError(t, err)
	assert.Equal(t, 1, df)
}
