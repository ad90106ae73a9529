package handlers

import (
	"encoding/json"
	"net/http"

	"parking-bknd/internal/models"
	"parking-bknd/internal/services"

	"go.uber.org/zap"
)

type TerminalHandler struct {
	service *services.TerminalService
	logr    *zap.Logger
}

func NewTerminalHandler(svc *services.TerminalService, logr *zap.Logger) *TerminalHandler {
	return &TerminalHandler{service: svc, logr: logr}
}

func (h *TerminalHandler) ListTerminals(w http.ResponseWriter, r *http.Request) {
	zoneID := queryInt64(r, "zone_id")
	fc, err := h.service.ListTerminals(r.Context(), zoneID)
	if err != nil {
		h.logr.Error("failed to list terminals", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *TerminalHandler) GetTerminal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid terminal id"})
		return
	}
	f, err := h.service.GetTerminal(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *TerminalHandler) CreateTerminal(w http.ResponseWriter, r *http.Request) {
	var payload models.TerminalWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	t, err := h.service.CreateTerminal(r.Context(), payload)
	if err != nil {
		h.logr.Error("failed to create terminal", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TerminalHandler) UpdateTerminal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid terminal id"})
		return
	}
	var payload models.TerminalWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	t, err := h.service.UpdateTerminal(r.Context(), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TerminalHandler) DeleteTerminal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid terminal id"})
		return
	}
	if err := h.service.DeleteTerminal(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
