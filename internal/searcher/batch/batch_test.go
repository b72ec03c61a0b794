package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/qry"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

func TestReadQueries(t *testing.T) {
	queries, err := ReadQueries(strings.NewReader("10:apple pie\n\n 11 : #near/1(apple pie)\n12:\n"))
	require.NoError(t, err)
	assert.Equal(t, []Query{
		{ID: "10", Text: "apple pie"},
		{ID: "11", Text: "#near/1(apple pie)"},
		{ID: "12", Text: ""},
	}, queries)

	_, err = ReadQueries(strings.NewReader("10:apple\nno separator\n"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "line 2")
}

func testExecutor() *executor.Executor {
	idx := index.NewMemoryIndex()
	idx.AddDocument("GX-0", map[string]string{"body": "apple pie apple"})
	idx.AddDocument("GX-1", map[string]string{"body": "pie crust"})
	idx.AddDocument("GX-2", map[string]string{"body": "apple tart"})
	return executor.New(idx, parser.New(idx, parser.Options{DefaultField: "body"}))
}

type recorder struct {
	mu     sync.Mutex
	events []analytics.EvaluationEvent
}

func (r *recorder) Track(e analytics.EvaluationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestRunWritesInQueryFileOrder(t *testing.T) {
	tracker := &recorder{}
	driver := NewDriver(testExecutor(), qry.NewRankedBoolean(), config.BatchConfig{
		RunID:                "test-run",
		ResultLimit:          10,
		MaxConcurrentQueries: 3,
	}, tracker)

	queries := []Query{
		{ID: "3", Text: "crust"},
		{ID: "1", Text: "apple"},
		{ID: "2", Text: "zebra"},
	}
	var buf bytes.Buffer
	require.NoError(t, driver.Run(context.Background(), queries, &buf))

	assert.Equal(t,
		"3 Q0 GX-1 1 1.000000000000 test-run\n"+
			"1 Q0 GX-0 1 2.000000000000 test-run\n"+
			"1 Q0 GX-2 2 1.000000000000 test-run\n"+
			"2 Q0 dummy 1 0 test-run\n",
		buf.String())
	assert.Len(t, tracker.events, 3)
}

func TestRunAbortsOnInvalidQuery(t *testing.T) {
	driver := NewDriver(testExecutor(), qry.NewRankedBoolean(), config.BatchConfig{RunID: "r", MaxConcurrentQueries: 2}, nil)
	var buf bytes.Buffer
	err := driver.Run(context.Background(), []Query{{ID: "1", Text: "apple"}, {ID: "2", Text: "#near/0(apple pie)"}}, &buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))
	assert.Contains(t, err.Error(), "query 2")
	assert.Empty(t, buf.String())
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	queryPath := filepath.Join(dir, "queries.txt")
	outputPath := filepath.Join(dir, "run.teIn")
	require.NoError(t, os.WriteFile(queryPath, []byte("7:#and(apple pie)\n"), 0o644))

	driver := NewDriver(testExecutor(), qry.NewUnrankedBoolean(), config.BatchConfig{RunID: "r", MaxConcurrentQueries: 1}, nil)
	require.NoError(t, driver.RunFile(context.Background(), queryPath, outputPath))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "7 Q0 GX-0 1 1.000000000000 r\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary file removed")
}

func TestRunFileFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	queryPath := filepath.Join(dir, "queries.txt")
	outputPath := filepath.Join(dir, "run.teIn")
	require.NoError(t, os.WriteFile(queryPath, []byte("1:#bogus(apple)\n"), 0o644))

	driver := NewDriver(testExecutor(), qry.NewUnrankedBoolean(), config.BatchConfig{RunID: "r", MaxConcurrentQueries: 1}, nil)
	require.Error(t, driver.RunFile(context.Background(), queryPath, outputPath))
	_, err := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(err))
}
