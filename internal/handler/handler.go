// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/calendar"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/service"
)

// Handler holds all HTTP handlers for the scheduling API.
type Handler struct {
	allocator  *service.Allocator
	events     *service.EventService
	users      *service.UserService
	ledger     *service.LedgerService
	dashboards *service.DashboardService
	calendar   *calendar.Exporter
}

// NewHandler constructs a Handler.
func NewHandler(svc *service.Services, cal *calendar.Exporter) *Handler {
	return &Handler{
		allocator:  svc.Allocator,
		events:     svc.Events,
		users:      svc.Users,
		ledger:     svc.Ledger,
		dashboards: svc.Dashboards,
		calendar:   cal,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

var familyStatus = map[service.Family]int{
	service.FamilyNotFound:   http.StatusNotFound,
	service.FamilyConflict:   http.StatusConflict,
	service.FamilyForbidden:  http.StatusForbidden,
	service.FamilyValidation: http.StatusBadRequest,
	service.FamilyOwnership:  http.StatusForbidden,
}

// writeServiceError renders business rejections with their stable code and
// hides everything else behind a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	status, ok := familyStatus[se.Family()]
	if !ok {
		status = http.StatusBadRequest
	}
	resp := model.ErrorResponse{Error: se.Message, Code: string(se.Kind)}
	if se.Kind == service.KindQuotaExceeded {
		quota := se.Quota
		resp.Quota = &quota
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
