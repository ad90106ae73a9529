package handlers

import (
	"encoding/json"
	"net/http"

	"parking-bknd/internal/models"
	"parking-bknd/internal/services"
	"parking-bknd/internal/utils"

	"go.uber.org/zap"
)

type StreetHandler struct {
	service *services.StreetService
	logr    *zap.Logger
}

func NewStreetHandler(svc *services.StreetService, logr *zap.Logger) *StreetHandler {
	return &StreetHandler{service: svc, logr: logr}
}

func (h *StreetHandler) ListStreets(w http.ResponseWriter, r *http.Request) {
	roadTypes := utils.ParseQueryList(r.URL.Query(), "road_type")
	fc, err := h.service.ListStreets(r.Context(), roadTypes)
	if err != nil {
		h.logr.Error("failed to list streets", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *StreetHandler) GetStreet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid street id"})
		return
	}
	f, err := h.service.GetStreet(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *StreetHandler) CreateStreet(w http.ResponseWriter, r *http.Request) {
	var payload models.StreetWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	seg, err := h.service.CreateStreet(r.Context(), payload)
	if err != nil {
		h.logr.Error("failed to create street", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seg)
}

func (h *StreetHandler) UpdateStreet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid street id"})
		return
	}
	var payload models.StreetWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	seg, err := h.service.UpdateStreet(r.Context(), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seg)
}

func (h *StreetHandler) DeleteStreet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid street id"})
		return
	}
	if err := h.service.DeleteStreet(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
