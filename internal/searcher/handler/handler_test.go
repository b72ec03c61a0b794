package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/qry"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/middleware"
)

type mapBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func (b *mapBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (b *mapBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = string(value.([]byte))
	return nil
}

func (b *mapBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
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

type searchBody struct {
	Query   string `json:"query"`
	Model   string `json:"model"`
	Matched int    `json:"matched"`
	Results []struct {
		DocID string  `json:"doc_id"`
		Score float64 `json:"score"`
	} `json:"results"`
	CacheHit bool `json:"cache_hit"`
}

var (
	testRetrieval = config.RetrievalConfig{
		Model:        "rankedboolean",
		DefaultField: "body",
		BM25:         config.BM25Config{K1: 1.2, B: 0.75},
		Indri:        config.IndriConfig{Mu: 2500, Lambda: 0.4},
	}
	testSearch = config.SearchConfig{DefaultLimit: 10, MaxResults: 2}
)

func newHandler(t *testing.T, withCache bool) (*Handler, *recorder) {
	t.Helper()
	idx := index.NewMemoryIndex()
	idx.AddDocument("GX-0", map[string]string{"body": "apple pie apple"})
	idx.AddDocument("GX-1", map[string]string{"body": "pie crust"})
	idx.AddDocument("GX-2", map[string]string{"body": "apple tart"})

	exec := executor.New(idx, parser.New(idx, parser.Options{DefaultField: "body"}))
	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&mapBackend{data: make(map[string]string)}, time.Minute, nil)
	}
	rec := &recorder{}
	return New(exec, qc, rec, testRetrieval, testSearch), rec
}

func doSearch(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, searchBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	middleware.RequestID(http.HandlerFunc(h.Search)).ServeHTTP(rr, req)
	var body searchBody
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func TestSearchDefaultModel(t *testing.T) {
	h, rec := newHandler(t, false)
	rr, body := doSearch(t, h, "/api/v1/search?q=apple")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "rankedboolean", body.Model)
	assert.Equal(t, 2, body.Matched)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "GX-0", body.Results[0].DocID)
	assert.Equal(t, 2.0, body.Results[0].Score)

	require.Len(t, rec.events, 1)
	assert.Equal(t, analytics.EventEvaluation, rec.events[0].Type)
	assert.NotEmpty(t, rec.events[0].RequestID)
	assert.Equal(t, rr.Header().Get(middleware.RequestIDHeader), rec.events[0].RequestID)
}

func TestSearchLimitIsClamped(t *testing.T) {
	h, _ := newHandler(t, false)
	rr, body := doSearch(t, h, "/api/v1/search?q=apple+pie&model=unrankedboolean&limit=50")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, body.Matched)
	assert.Len(t, body.Results, 2)
}

func TestSearchBadRequests(t *testing.T) {
	h, rec := newHandler(t, false)
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing query", "/api/v1/search", http.StatusBadRequest},
		{"bad limit", "/api/v1/search?q=apple&limit=zero", http.StatusBadRequest},
		{"negative limit", "/api/v1/search?q=apple&limit=-1", http.StatusBadRequest},
		{"unknown model", "/api/v1/search?q=apple&model=tfidf", http.StatusBadRequest},
		{"invalid query", "/api/v1/search?q=%23and(apple", http.StatusBadRequest},
		{"unsupported operator", "/api/v1/search?q=%23sum(apple)&model=indri", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, _ := doSearch(t, h, tt.target)
			assert.Equal(t, tt.status, rr.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}

	var failures int
	for _, e := range rec.events {
		if e.Type == analytics.EventFailure {
			failures++
		}
	}
	assert.Equal(t, 2, failures, "only evaluated queries are tracked")
}

func TestSearchUsesCache(t *testing.T) {
	h, rec := newHandler(t, true)

	_, first := doSearch(t, h, "/api/v1/search?q=apple&model=bm25")
	_, second := doSearch(t, h, "/api/v1/search?q=APPLE&model=bm25")
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Results, second.Results)

	require.Len(t, rec.events, 2)
	assert.Equal(t, analytics.EventCacheHit, rec.events[1].Type)

	rr := httptest.NewRecorder()
	h.CacheStats(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["hits"])
	assert.EqualValues(t, 1, stats["misses"])
	assert.Equal(t, "closed", stats["breaker"])

	rr = httptest.NewRecorder()
	h.CacheInvalidate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var inv map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &inv))
	assert.EqualValues(t, 1, inv["keys_deleted"])

	_, third := doSearch(t, h, "/api/v1/search?q=apple&model=bm25")
	assert.False(t, third.CacheHit)
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	h, _ := newHandler(t, false)

	rr := httptest.NewRecorder()
	h.CacheStats(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "disabled")

	rr = httptest.NewRecorder()
	h.CacheInvalidate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCacheInvalidateRefreshesCollectionStats(t *testing.T) {
	idx := index.NewMemoryIndex()
	idx.AddDocument("GX-0", map[string]string{"body": "pie crust"})
	idx.AddDocument("GX-1", map[string]string{"body": "apple tart"})
	idx.AddDocument("GX-2", map[string]string{"body": "apple pie"})
	stats := index.NewCachedStats(idx)
	h := New(executor.New(stats, parser.New(stats, parser.Options{DefaultField: "body"})),
		nil, nil, testRetrieval, testSearch, WithStatsInvalidator(stats))

	score := func() float64 {
		rr, body := doSearch(t, h, "/api/v1/search?q=crust&model=bm25")
		require.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, body.Results, 1)
		return body.Results[0].Score
	}
	before := score()

	idx.AddDocument("GX-3", map[string]string{"body": "tart"})
	idx.AddDocument("GX-4", map[string]string{"body": "tart"})
	assert.Equal(t, before, score(), "memoised statistics are still in use")

	rr := httptest.NewRecorder()
	h.CacheInvalidate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var inv map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &inv))
	assert.Equal(t, true, inv["collection_stats"])
	assert.EqualValues(t, 0, inv["keys_deleted"])

	bm25, err := qry.ModelByName("bm25", testRetrieval)
	require.NoError(t, err)
	fresh := index.NewCachedStats(idx)
	want, err := executor.New(fresh, parser.New(fresh, parser.Options{DefaultField: "body"})).
		Execute(context.Background(), "crust", bm25, 10)
	require.NoError(t, err)
	after := score()
	assert.NotEqual(t, before, after)
	assert.InDelta(t, want.Results[0].Score, after, 1e-12)
}
