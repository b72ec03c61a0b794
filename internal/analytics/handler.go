package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// maxTopN caps the top query lists a client may request.
const maxTopN = 100

// Handler serves aggregated evaluation statistics.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats handles GET /api/v1/stats. The optional top parameter sets how many
// frequent and zero-result queries are listed.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := DefaultTopN
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopN {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "top must be an integer between 1 and " + strconv.Itoa(maxTopN),
			})
			return
		}
		top = n
	}
	h.writeJSON(w, http.StatusOK, h.aggregator.StatsTop(top))
}

// Models handles GET /api/v1/stats/models.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"models": h.aggregator.Models()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write stats response", "error", err)
	}
}
