// Package consumer follows the documents topic and feeds each document into
// the indexer engine.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/kafka"
)

// DocumentIndexer is the part of indexer.Engine the consumer drives.
type DocumentIndexer interface {
	IndexDocument(doc indexer.Document) (int, error)
}

// HandleMessage returns a Kafka MessageHandler that indexes one
// indexer.Document per message. Undecodable or invalid documents are logged
// and committed so they do not block the partition.
func HandleMessage(engine DocumentIndexer) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		doc, err := kafka.DecodeJSON[indexer.Document](value)
		if err != nil {
			logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		docID, err := engine.IndexDocument(doc)
		if errors.Is(err, apperrors.ErrInvalidInput) {
			logger.Warn("skipping invalid document", "key", string(key), "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("indexing document %s: %w", doc.ID, err)
		}
		logger.Debug("document indexed",
			"external_id", doc.ID,
			"doc_id", docID,
		)
		return nil
	}
}
