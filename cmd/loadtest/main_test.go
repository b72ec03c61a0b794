package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/batch"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestRunAgainstSearchService(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "bm25", r.URL.Query().Get("model"))
		if r.URL.Query().Get("q") == "#bad(" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if n%2 == 0 {
			_, _ = w.Write([]byte(`{"cache_hit":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"cache_hit":false}`))
	}))
	defer srv.Close()

	cfg := loadConfig{
		BaseURL:     srv.URL,
		Model:       "bm25",
		Limit:       5,
		Concurrency: 2,
		Queries:     []batch.Query{{ID: "1", Text: "apple pie"}, {ID: "2", Text: "#bad("}},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s := run(ctx, cfg, srv.Client())

	require.Positive(t, s.total.Load())
	assert.Positive(t, s.failures.Load())
	assert.Less(t, s.failures.Load(), s.total.Load())

	var out bytes.Buffer
	assert.True(t, report(&out, s, 200*time.Millisecond))
	assert.Contains(t, out.String(), "status 400:")
	assert.Contains(t, out.String(), "status 200:")
	assert.Contains(t, out.String(), "latency min=")
}

func TestReportWithoutRequests(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, report(&out, newStats(), time.Second))
	assert.Equal(t, "requests=0 failures=0\n", out.String())
}
