// Package batch evaluates a file of queries and writes a TREC run file.
//
// The query file has one query per line in the form "qid:query". Queries
// are evaluated concurrently, each with its own operator tree, and the run
// is written in query file order.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/qry"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/tracing"
)

type Query struct {
	ID   string
	Text string
}

// ReadQueries parses a query file. Blank lines are skipped.
func ReadQueries(r io.Reader) ([]Query, error) {
	var queries []Query
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		id, query, ok := strings.Cut(text, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: query file line %d: expected qid:query", apperrors.ErrInvalidInput, line)
		}
		queries = append(queries, Query{ID: id, Text: strings.TrimSpace(query)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	return queries, nil
}

// Evaluator is satisfied by executor.Executor.
type Evaluator interface {
	Execute(ctx context.Context, query string, m qry.Model, limit int) (*executor.Result, error)
}

type Driver struct {
	exec        Evaluator
	model       qry.Model
	limit       int
	concurrency int
	runID       string
	tracker     analytics.Tracker
	logger      *slog.Logger
}

// NewDriver returns a Driver. tracker may be nil.
func NewDriver(exec Evaluator, m qry.Model, cfg config.BatchConfig, tracker analytics.Tracker) *Driver {
	concurrency := cfg.MaxConcurrentQueries
	if concurrency < 1 {
		concurrency = 1
	}
	return &Driver{
		exec:        exec,
		model:       m,
		limit:       cfg.ResultLimit,
		concurrency: concurrency,
		runID:       cfg.RunID,
		tracker:     tracker,
		logger:      logger.WithComponent("batch-driver"),
	}
}

// Run evaluates queries and writes the run to w. The first failing query
// cancels the rest and nothing is written.
func (d *Driver) Run(ctx context.Context, queries []Query, w io.Writer) error {
	start := time.Now()
	results := make([]*executor.Result, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			began := time.Now()
			qlog := logger.WithQuery("batch-driver", q.ID)
			qctx, span := tracing.StartTrace(gctx, "query", q.ID)
			res, err := d.exec.Execute(qctx, q.Text, d.model, d.limit)
			span.Log(qctx, qlog, slog.LevelDebug)
			d.track(q, res, err, time.Since(began))
			if err != nil {
				if gctx.Err() == nil {
					qlog.Warn("query failed", "error", err)
				}
				return fmt.Errorf("query %s: %w", q.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, q := range queries {
		if err := ranker.WriteTREC(w, q.ID, results[i].Results, d.runID); err != nil {
			return err
		}
	}
	d.logger.Info("batch completed",
		"queries", len(queries),
		"model", d.model.String(),
		"concurrency", d.concurrency,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// RunFile reads queryPath and writes the run to outputPath. The output is
// written to a temporary file and renamed, so a failed run leaves no partial
// file behind.
func (d *Driver) RunFile(ctx context.Context, queryPath, outputPath string) error {
	in, err := os.Open(queryPath)
	if err != nil {
		return fmt.Errorf("opening query file: %w", err)
	}
	queries, err := ReadQueries(in)
	in.Close()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), filepath.Base(outputPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating run file: %w", err)
	}
	defer os.Remove(tmp.Name())

	out := bufio.NewWriter(tmp)
	if err := d.Run(ctx, queries, out); err != nil {
		tmp.Close()
		return err
	}
	if err := out.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing run file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing run file: %w", err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return fmt.Errorf("publishing run file: %w", err)
	}
	return nil
}

func (d *Driver) track(q Query, res *executor.Result, err error, latency time.Duration) {
	if d.tracker == nil {
		return
	}
	event := analytics.EvaluationEvent{
		QueryID:   q.ID,
		Query:     q.Text,
		Model:     d.model.String(),
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
	if res != nil {
		event.Matched = res.Matched
		event.Returned = len(res.Results)
	}
	if err != nil {
		event.Error = err.Error()
	}
	event.Type = analytics.TypeOf(event.Matched, false, err)
	d.tracker.Track(event)
}
