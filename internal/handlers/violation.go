package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"parking-bknd/internal/models"
	"parking-bknd/internal/services"

	"go.uber.org/zap"
)

type ViolationHandler struct {
	service *services.ViolationService
	logr    *zap.Logger
}

func NewViolationHandler(svc *services.ViolationService, logr *zap.Logger) *ViolationHandler {
	return &ViolationHandler{service: svc, logr: logr}
}

func (h *ViolationHandler) ListViolations(w http.ResponseWriter, r *http.Request) {
	bayID := queryInt64(r, "bay_id")

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid since timestamp"})
			return
		}
		since = &t
	}

	fc, err := h.service.ListViolations(r.Context(), bayID, since)
	if err != nil {
		h.logr.Error("failed to list violations", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *ViolationHandler) GetViolation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid violation id"})
		return
	}
	f, err := h.service.GetViolation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *ViolationHandler) IssueViolation(w http.ResponseWriter, r *http.Request) {
	var payload models.ViolationWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	v, err := h.service.IssueViolation(r.Context(), payload)
	if err != nil {
		h.logr.Error("failed to issue violation", zap.Int64("bay_id", payload.BayID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *ViolationHandler) UpdateViolation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid violation id"})
		return
	}
	var payload struct {
		ViolationType string  `json:"violation_type"`
		FineAmount    float64 `json:"fine_amount"`
		Notes         string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	v, err := h.service.UpdateViolation(r.Context(), id, payload.ViolationType, payload.FineAmount, payload.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *ViolationHandler) DeleteViolation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid violation id"})
		return
	}
	if err := h.service.DeleteViolation(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
