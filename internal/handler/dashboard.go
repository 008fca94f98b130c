package handler

import (
	"net/http"
	"time"
)

// Dashboard handles GET /dashboard?month=MM
// The month defaults to the current one.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("01")
	}

	d, err := h.dashboards.Dashboard(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
