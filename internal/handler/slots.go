package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/auth"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

// Assign handles POST /events/{id}/assign
// Claims the slot for the authenticated caller.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	caller, _ := auth.IdentityFrom(r.Context())

	var req model.AssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	slot, err := h.allocator.Claim(r.Context(), eventID, req.SlotOrder, caller.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, slot)
}

// Remove handles POST /events/{id}/remove
// Releases the caller's slot after recording the justification.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	caller, _ := auth.IdentityFrom(r.Context())

	var req model.RemoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	slot, err := h.allocator.Release(r.Context(), eventID, req.SlotOrder, caller.UserID, req.Justification)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, slot)
}
