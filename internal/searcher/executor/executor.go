// Package executor parses and evaluates queries document-at-a-time against
// a posting store and returns ranked results.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/qry"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/tracing"
)

// cancelCheckInterval is how many matches are scored between context
// checks.
const cancelCheckInterval = 256

// Result is the outcome of one query. Matched counts every matching
// document; Results holds at most the requested limit.
type Result struct {
	Query   string             `json:"query"`
	Model   string             `json:"model"`
	Matched int                `json:"matched"`
	Results []ranker.ScoredDoc `json:"results"`
}

type Executor struct {
	store   index.Store
	parser  *parser.Parser
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Executor)

// WithMetrics records query counts, latency and match counts in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTimeout bounds each evaluation. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

func New(store index.Store, p *parser.Parser, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		parser: p,
		logger: slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute parses query under model m, evaluates it and returns the best
// limit documents. A limit <= 0 returns every match. Evaluation is
// all-or-nothing: any store or model error fails the whole query.
func (e *Executor) Execute(ctx context.Context, query string, m qry.Model, limit int) (*Result, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "execute")
	defer span.End()
	span.Set("model", m.Params())

	_, parseSpan := tracing.Start(ctx, "parse")
	plan, err := e.parser.Parse(query, m)
	parseSpan.End()
	if err != nil {
		e.observe(m, "invalid", start, 0)
		return nil, err
	}

	var result *Result
	err = resilience.WithTimeout(ctx, e.timeout, "evaluate", func(ctx context.Context) error {
		ctx, evalSpan := tracing.Start(ctx, "evaluate")
		defer evalSpan.End()
		r, err := e.evaluate(ctx, plan, m, limit)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		status := "error"
		if errors.Is(err, apperrors.ErrTimeout) {
			status = "timeout"
		}
		e.observe(m, status, start, 0)
		return nil, fmt.Errorf("evaluating %q: %w", query, err)
	}

	status := "ok"
	if result.Matched == 0 {
		status = "empty"
	}
	e.observe(m, status, start, result.Matched)
	span.Set("matched", result.Matched)
	e.logger.Info("query evaluated",
		"query", query,
		"model", m.String(),
		"matched", result.Matched,
		"returned", len(result.Results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (e *Executor) evaluate(ctx context.Context, plan *parser.Plan, m qry.Model, limit int) (*Result, error) {
	result := &Result{Query: plan.Raw, Model: m.String(), Results: []ranker.ScoredDoc{}}
	if plan.Empty() {
		return result, nil
	}

	root := plan.Root
	if err := root.Initialize(ctx, m); err != nil {
		return nil, err
	}
	top := merger.NewTopK(limit)
	for root.HasMatch(m) {
		docID := root.MatchDocID()
		score, err := root.Score(ctx, m)
		if err != nil {
			return nil, err
		}
		externalID, err := e.store.ExternalID(ctx, docID)
		if err != nil {
			return nil, err
		}
		top.Push(ranker.ScoredDoc{DocID: docID, ExternalID: externalID, Score: score})
		result.Matched++
		root.AdvancePast(docID)

		if result.Matched%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	result.Results = top.Results()
	return result, nil
}

func (e *Executor) observe(m qry.Model, status string, start time.Time, matched int) {
	if e.metrics == nil {
		return
	}
	model := m.String()
	e.metrics.QueriesTotal.WithLabelValues(model, status).Inc()
	if status == "ok" || status == "empty" {
		e.metrics.EvaluationLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())
		e.metrics.MatchedDocuments.WithLabelValues(model).Observe(float64(matched))
	}
}
