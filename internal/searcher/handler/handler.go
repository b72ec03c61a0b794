// Package handler exposes query evaluation over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/qry"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/tracing"
)

type QueryExecutor interface {
	Execute(ctx context.Context, query string, m qry.Model, limit int) (*executor.Result, error)
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	*executor.Result
	CacheHit  bool  `json:"cache_hit"`
	LatencyMs int64 `json:"latency_ms"`
}

// StatsInvalidator drops memoised collection statistics, such as
// index.CachedStats.
type StatsInvalidator interface {
	Invalidate()
}

type Handler struct {
	executor  QueryExecutor
	cache     *cache.QueryCache
	stats     StatsInvalidator
	tracker   analytics.Tracker
	retrieval config.RetrievalConfig
	search    config.SearchConfig
	logger    *slog.Logger
}

type Option func(*Handler)

// WithStatsInvalidator makes CacheInvalidate also drop memoised collection
// statistics, so scoring sees a re-imported index.
func WithStatsInvalidator(s StatsInvalidator) Option {
	return func(h *Handler) { h.stats = s }
}

// New returns a Handler. queryCache and tracker may be nil.
func New(exec QueryExecutor, queryCache *cache.QueryCache, tracker analytics.Tracker,
	retrieval config.RetrievalConfig, search config.SearchConfig, opts ...Option) *Handler {
	h := &Handler{
		executor:  exec,
		cache:     queryCache,
		tracker:   tracker,
		retrieval: retrieval,
		search:    search,
		logger:    slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Search handles GET /api/v1/search?q=&model=&limit=. The model defaults to
// the configured one and takes its parameters from configuration.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartTrace(r.Context(), "search", middleware.GetRequestID(r.Context()))
	log := logger.FromContext(ctx)
	defer span.Log(ctx, log, slog.LevelDebug)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.search.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if h.search.MaxResults > 0 {
		limit = min(limit, h.search.MaxResults)
	}

	modelName := r.URL.Query().Get("model")
	if modelName == "" {
		modelName = h.retrieval.Model
	}
	model, err := qry.ModelByName(modelName, h.retrieval)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	span.Set("model", model.String())
	var (
		result   *executor.Result
		cacheHit bool
	)
	if h.cache != nil {
		key := cache.Key{Query: query, Model: model, Limit: limit}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, func() (*executor.Result, error) {
			return h.executor.Execute(ctx, query, model, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, query, model, limit)
	}
	latency := time.Since(start)
	span.Set("cache_hit", cacheHit)
	h.track(ctx, query, model, result, cacheHit, err, latency)

	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("search failed", "query", query, "model", model.String(), "error", err)
			h.writeError(w, status, http.StatusText(status))
			return
		}
		log.Warn("search rejected", "query", query, "model", model.String(), "error", err)
		h.writeError(w, status, err.Error())
		return
	}

	log.Info("search completed",
		"query", query,
		"model", model.String(),
		"matched", result.Matched,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Result:    result,
		CacheHit:  cacheHit,
		LatencyMs: latency.Milliseconds(),
	})
}

func (h *Handler) track(ctx context.Context, query string, m qry.Model, result *executor.Result,
	cacheHit bool, err error, latency time.Duration) {
	if h.tracker == nil {
		return
	}
	event := analytics.EvaluationEvent{
		Query:     query,
		Model:     m.String(),
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	}
	if result != nil {
		event.Matched = result.Matched
		event.Returned = len(result.Results)
	}
	if err != nil {
		event.Error = err.Error()
	}
	event.Type = analytics.TypeOf(event.Matched, cacheHit, err)
	h.tracker.Track(event)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate. It clears cached
// results and memoised collection statistics.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil && h.stats == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if h.stats != nil {
		h.stats.Invalidate()
	}
	var deleted int64
	if h.cache != nil {
		n, err := h.cache.Invalidate(r.Context())
		if err != nil {
			h.logger.Error("cache invalidation failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
			return
		}
		deleted = n
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":           "invalidated",
		"keys_deleted":     deleted,
		"collection_stats": h.stats != nil,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
