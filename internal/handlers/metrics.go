package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/utils"
	"github.com/finopslabs/apinbox/internal/worklist"
)

// MetricsHandler serves the read-only reporting endpoints. All endpoints
// read committed truth; nothing here mutates pipeline state.
type MetricsHandler struct {
	store  *repository.Store
	logger *utils.Logger
}

func NewMetricsHandler(store *repository.Store, logger *utils.Logger) *MetricsHandler {
	return &MetricsHandler{
		store:  store,
		logger: logger,
	}
}

func (h *MetricsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.store.Overview(r.Context())
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to compute overview"))
		h.logger.Error("overview query failed", "error", err)
		return
	}

	h.respondJSON(w, http.StatusOK, overview)
}

func (h *MetricsHandler) StatusBreakdown(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.StatusBreakdown(r.Context())
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to compute status breakdown"))
		h.logger.Error("status breakdown query failed", "error", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"statuses": rows})
}

func (h *MetricsHandler) Ageing(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.AgeingBuckets(r.Context())
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to compute ageing buckets"))
		h.logger.Error("ageing query failed", "error", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"buckets": rows})
}

// Worklist returns the current ranked worklist. ?include_ready=false
// filters READY TO POST rows for teams that post from another screen.
func (h *MetricsHandler) Worklist(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.CurrentWorklist(r.Context())
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to read worklist"))
		h.logger.Error("worklist query failed", "error", err)
		return
	}

	includeReady := true
	if v := strings.ToLower(r.URL.Query().Get("include_ready")); v == "false" || v == "0" {
		includeReady = false
	}

	if !includeReady {
		filtered := items[:0]
		for _, item := range items {
			if item.NextAction != worklist.ActionReadyToPost {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}

func (h *MetricsHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *MetricsHandler) respondError(w http.ResponseWriter, err error) {
	var status int
	var message string

	switch e := err.(type) {
	case *utils.AppError:
		status = e.StatusCode
		message = e.Message
	default:
		status = http.StatusInternalServerError
		message = "Internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
