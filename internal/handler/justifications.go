package handler

import (
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

// ListJustifications handles GET /justifications?limit=N
// Without a limit every entry is returned, newest first.
func (h *Handler) ListJustifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.ledger.ListAll(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.Justification{}
	}

	writeJSON(w, http.StatusOK, entries)
}

// ListEventJustifications handles GET /events/{id}/justifications
func (h *Handler) ListEventJustifications(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	entries, err := h.ledger.ListByEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.Justification{}
	}

	writeJSON(w, http.StatusOK, entries)
}
