// Command loadtest replays a query file against the search service and
// reports latency percentiles, status codes and the cache hit rate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/batch"
)

type loadConfig struct {
	BaseURL     string
	Model       string
	Limit       int
	Concurrency int
	Duration    time.Duration
	Queries     []batch.Query
}

type stats struct {
	total     atomic.Int64
	failures  atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
}

func newStats() *stats {
	return &stats{statuses: make(map[int]int64)}
}

func (s *stats) record(latency time.Duration, status int, cacheHit bool, err error) {
	s.total.Add(1)
	if err != nil || status < 200 || status >= 300 {
		s.failures.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}
	if err != nil {
		return
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, latency)
	s.statuses[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	queryFile := flag.String("queries", "", "query file in qid:query format")
	model := flag.String("model", "", "retrieval model; empty uses the service default")
	limit := flag.Int("limit", 10, "results per query")
	concurrency := flag.Int("concurrency", 10, "concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	if *queryFile == "" {
		fmt.Fprintln(os.Stderr, "-queries is required")
		os.Exit(2)
	}
	f, err := os.Open(*queryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening query file: %v\n", err)
		os.Exit(1)
	}
	queries, err := batch.ReadQueries(f)
	f.Close()
	if err != nil || len(queries) == 0 {
		fmt.Fprintf(os.Stderr, "no usable queries in %s: %v\n", *queryFile, err)
		os.Exit(1)
	}

	cfg := loadConfig{
		BaseURL:     *baseURL,
		Model:       *model,
		Limit:       *limit,
		Concurrency: *concurrency,
		Duration:    *duration,
		Queries:     queries,
	}
	fmt.Printf("target=%s model=%q concurrency=%d duration=%s queries=%d\n",
		cfg.BaseURL, cfg.Model, cfg.Concurrency, cfg.Duration, len(cfg.Queries))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()
	s := run(ctx, cfg, &http.Client{Timeout: 10 * time.Second})
	if !report(os.Stdout, s, cfg.Duration) {
		os.Exit(1)
	}
}

// run keeps cfg.Concurrency workers cycling through the queries until ctx
// is done.
func run(ctx context.Context, cfg loadConfig, client *http.Client) *stats {
	s := newStats()
	var g errgroup.Group
	for w := range cfg.Concurrency {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				q := cfg.Queries[i%len(cfg.Queries)]
				start := time.Now()
				status, hit, err := search(ctx, client, cfg, q.Text)
				if ctx.Err() != nil {
					return nil
				}
				s.record(time.Since(start), status, hit, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return s
}

func search(ctx context.Context, client *http.Client, cfg loadConfig, query string) (int, bool, error) {
	params := url.Values{"q": {query}, "limit": {strconv.Itoa(cfg.Limit)}}
	if cfg.Model != "" {
		params.Set("model", cfg.Model)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/api/v1/search?"+params.Encode(), nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.CacheHit, nil
}

// report prints the summary and reports whether any request completed.
func report(w io.Writer, s *stats, elapsed time.Duration) bool {
	total := s.total.Load()
	failures := s.failures.Load()
	fmt.Fprintf(w, "requests=%d failures=%d", total, failures)
	if total > 0 {
		fmt.Fprintf(w, " error_rate=%.2f%% rps=%.1f cache_hit_rate=%.1f%%",
			float64(failures)/float64(total)*100,
			float64(total)/elapsed.Seconds(),
			float64(s.cacheHits.Load())/float64(total)*100,
		)
	}
	fmt.Fprintln(w)

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	codes := make([]int, 0, len(s.statuses))
	for code := range s.statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "status %d: %d\n", code, s.statuses[code])
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		fmt.Fprintf(w, "latency min=%s p50=%s p90=%s p99=%s max=%s\n",
			latencies[0],
			percentile(latencies, 50),
			percentile(latencies, 90),
			percentile(latencies, 99),
			latencies[len(latencies)-1],
		)
	}
	return total > 0
}

// percentile uses the nearest-rank method on sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
