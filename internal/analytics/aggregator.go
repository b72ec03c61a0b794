package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/kafka"
)

const (
	// maxLatencySamples bounds the latency window used for percentiles.
	maxLatencySamples = 10000
	// DefaultTopN is how many queries Stats lists.
	DefaultTopN = 10
)

type AggregatedStats struct {
	TotalQueries      int64            `json:"total_queries"`
	Failures          int64            `json:"failures"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	QueriesByModel    map[string]int64 `json:"queries_by_model"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	AvgMatched        float64          `json:"avg_matched"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// ModelSummary is the per-model slice of the aggregate.
type ModelSummary struct {
	Model        string  `json:"model"`
	Queries      int64   `json:"queries"`
	Failures     int64   `json:"failures"`
	ZeroResults  int64   `json:"zero_results"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	AvgMatched   float64 `json:"avg_matched"`
}

type modelTally struct {
	queries, failures, zeroResults int64
	latencySum, matchedSum         int64
}

// Aggregator folds evaluation events into AggregatedStats. It is safe for
// concurrent use.
type Aggregator struct {
	totalQueries atomic.Int64
	failures     atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	zeroResults  atomic.Int64

	mu                sync.RWMutex
	latencies         []int64
	next              int
	matchedSum        int64
	byModel           map[string]*modelTally
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

var _ Tracker = (*Aggregator)(nil)

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		byModel:           make(map[string]*modelTally),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka MessageHandler that feeds agg from the
// evaluation events topic.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[EvaluationEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode evaluation event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		agg.Track(event)
		return nil
	}
}

// Track records one event.
func (a *Aggregator) Track(event EvaluationEvent) {
	a.totalQueries.Add(1)
	if event.Type == EventFailure {
		a.failures.Add(1)
	} else if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	zero := event.Type != EventFailure && event.Matched == 0
	if zero {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	a.matchedSum += int64(event.Matched)
	tally := a.byModel[event.Model]
	if tally == nil {
		tally = &modelTally{}
		a.byModel[event.Model] = tally
	}
	tally.queries++
	tally.latencySum += event.LatencyMs
	tally.matchedSum += int64(event.Matched)
	if event.Type == EventFailure {
		tally.failures++
	}
	if zero {
		tally.zeroResults++
	}
	a.queryCounts[event.Query]++
	if zero {
		a.zeroResultQueries[event.Query]++
	}
}

// Stats returns the aggregate with the DefaultTopN most frequent queries.
func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTopN)
}

// StatsTop returns the aggregate listing the n most frequent queries. n < 1
// falls back to DefaultTopN.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	if n < 1 {
		n = DefaultTopN
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQueries:    a.totalQueries.Load(),
		Failures:        a.failures.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		QueriesByModel:  make(map[string]int64, len(a.byModel)),
	}
	for model, tally := range a.byModel {
		stats.QueriesByModel[model] = tally.queries
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if stats.TotalQueries > 0 {
		stats.AvgMatched = float64(a.matchedSum) / float64(stats.TotalQueries)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

// Models summarises every model seen so far, ordered by name.
func (a *Aggregator) Models() []ModelSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]ModelSummary, 0, len(a.byModel))
	for model, tally := range a.byModel {
		out = append(out, ModelSummary{
			Model:        model,
			Queries:      tally.queries,
			Failures:     tally.failures,
			ZeroResults:  tally.zeroResults,
			AvgLatencyMs: float64(tally.latencySum) / float64(tally.queries),
			AvgMatched:   float64(tally.matchedSum) / float64(tally.queries),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
