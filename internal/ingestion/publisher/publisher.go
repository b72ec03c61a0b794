// Package publisher sends documents to the documents topic consumed by the
// indexer. Events are keyed by external id, so every version of a document
// lands on the same partition in order.
package publisher

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/kafka"
)

const defaultBatchSize = 500

type Publisher struct {
	producer  kafka.BatchPublisher
	validator *validator.Validator
	batchSize int
	logger    *slog.Logger
}

func New(producer kafka.BatchPublisher, v *validator.Validator, batchSize int) *Publisher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Publisher{
		producer:  producer,
		validator: v,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "document-publisher"),
	}
}

// Publish validates doc and writes it to the topic.
func (p *Publisher) Publish(ctx context.Context, doc indexer.Document) error {
	if err := p.validator.Validate(doc); err != nil {
		return err
	}
	if err := p.producer.PublishBatch(ctx, []kafka.Event{event(doc)}); err != nil {
		return fmt.Errorf("publishing document %s: %w", doc.ID, err)
	}
	return nil
}

// CorpusReport counts the documents of one corpus file.
type CorpusReport struct {
	Published int `json:"published"`
	Rejected  int `json:"rejected"`
}

// PublishCorpus publishes every document of a JSONL corpus in batches.
// Documents that fail validation are logged and skipped; a line that is not
// JSON aborts the load.
func (p *Publisher) PublishCorpus(ctx context.Context, r io.Reader) (CorpusReport, error) {
	var report CorpusReport
	batch := make([]kafka.Event, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.producer.PublishBatch(ctx, batch); err != nil {
			return fmt.Errorf("publishing batch after %d documents: %w", report.Published, err)
		}
		report.Published += len(batch)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var doc indexer.Document
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			return report, fmt.Errorf("%w: corpus line %d: %v", apperrors.ErrInvalidInput, line, err)
		}
		if err := p.validator.Validate(doc); err != nil {
			var verr *validator.ValidationError
			if !errors.As(err, &verr) {
				return report, err
			}
			report.Rejected++
			p.logger.Warn("skipping invalid document", "line", line, "error", err)
			continue
		}
		batch = append(batch, event(doc))
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return report, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("reading corpus: %w", err)
	}
	if err := flush(); err != nil {
		return report, err
	}
	p.logger.Info("corpus published", "published", report.Published, "rejected", report.Rejected)
	return report, nil
}

func event(doc indexer.Document) kafka.Event {
	return kafka.Event{Key: doc.ID, Value: doc}
}
