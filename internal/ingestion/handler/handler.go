// Package handler accepts documents over HTTP and queues them for indexing.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/logger"
)

const maxBodyBytes = 8 << 20

// DocumentPublisher is satisfied by publisher.Publisher.
type DocumentPublisher interface {
	Publish(ctx context.Context, doc indexer.Document) error
}

type Handler struct {
	publisher DocumentPublisher
	logger    *slog.Logger
}

func New(pub DocumentPublisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest handles POST /api/v1/documents with one document as the body.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var doc indexer.Document
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.publisher.Publish(ctx, doc); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		status := apperrors.HTTPStatusCode(err)
		log.Error("document publish failed", "external_id", doc.ID, "error", err)
		h.writeError(w, status, "document could not be queued")
		return
	}

	log.Info("document queued", "external_id", doc.ID, "fields", len(doc.Fields))
	h.writeJSON(w, http.StatusAccepted, map[string]string{"id": doc.ID, "status": "queued"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
