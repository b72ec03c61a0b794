package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/metrics"
)

// Document is one corpus record: an external id and its text fields. The
// corpus file holds one JSON Document per line.
type Document struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// Engine builds an in-memory index and persists it as segment snapshots.
// Internal docids are assigned densely in arrival order.
type Engine struct {
	mem     *index.MemoryIndex
	writer  *segment.Writer
	cfg     config.IndexConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	flushMu sync.Mutex
	dirty   atomic.Int64
}

type Option func(*Engine)

// WithMetrics counts indexed documents and segment flushes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(cfg config.IndexConfig, opts ...Option) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		mem:    index.NewMemoryIndex(),
		writer: segment.NewWriter(cfg.DataDir),
		cfg:    cfg,
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// IndexDocument adds doc to the memory index and returns its internal docid.
func (e *Engine) IndexDocument(doc Document) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("%w: document without id", apperrors.ErrInvalidInput)
	}
	if len(doc.Fields) == 0 {
		return 0, fmt.Errorf("%w: document %s has no fields", apperrors.ErrInvalidInput, doc.ID)
	}
	docID := e.mem.AddDocument(doc.ID, doc.Fields)
	e.dirty.Add(1)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.logger.Debug("document indexed in memory",
		"external_id", doc.ID,
		"doc_id", docID,
		"mem_size", e.mem.Size(),
	)
	return docID, nil
}

// LoadCorpus indexes every document of a JSONL file. Blank lines are
// skipped; a malformed line aborts the load.
func (e *Engine) LoadCorpus(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	start := time.Now()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n, line := 0, 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return n, fmt.Errorf("%w: %s line %d: %v", apperrors.ErrInvalidInput, path, line, err)
		}
		if _, err := e.IndexDocument(doc); err != nil {
			return n, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading corpus: %w", err)
	}
	e.logger.Info("corpus loaded",
		"path", path,
		"documents", n,
		"duration", time.Since(start),
	)
	return n, nil
}

// Flush writes the whole memory index as a new segment when documents were
// added since the last flush. It returns the segment name, or "" when there
// was nothing to write.
func (e *Engine) Flush() (string, error) {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	pending := e.dirty.Load()
	if pending == 0 {
		return "", nil
	}
	snapshot := e.mem.Snapshot()
	segmentName, err := e.writer.Write(snapshot)
	e.observeFlush(err)
	if err != nil {
		return "", fmt.Errorf("writing segment: %w", err)
	}
	e.dirty.Add(-pending)
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", len(snapshot.Entries),
		"docs", snapshot.Stats.NumDocs,
	)
	return segmentName, nil
}

// StartFlushLoop flushes every cfg.FlushInterval until ctx is cancelled,
// then performs a final flush.
func (e *Engine) StartFlushLoop(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	interval := e.cfg.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final flush")
				if _, err := e.Flush(); err != nil {
					e.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if _, err := e.Flush(); err != nil {
					e.logger.Error("periodic flush failed", "error", err)
				}
			}
		}
	}()
	return done
}

func (e *Engine) observeFlush(err error) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.IndexFlushesTotal.WithLabelValues(status).Inc()
}

// Index exposes the memory index, e.g. to serve queries directly.
func (e *Engine) Index() *index.MemoryIndex {
	return e.mem
}

func (e *Engine) Snapshot() *index.Snapshot {
	return e.mem.Snapshot()
}
