package handlers

import (
	"encoding/json"
	"net/http"

	"parking-bknd/internal/models"
	"parking-bknd/internal/services"
	"parking-bknd/internal/utils"

	"go.uber.org/zap"
)

type POIHandler struct {
	service *services.POIService
	logr    *zap.Logger
}

func NewPOIHandler(svc *services.POIService, logr *zap.Logger) *POIHandler {
	return &POIHandler{service: svc, logr: logr}
}

func (h *POIHandler) ListPOIs(w http.ResponseWriter, r *http.Request) {
	poiTypes := utils.ParseQueryList(r.URL.Query(), "poi_type")
	fc, err := h.service.ListPOIs(r.Context(), poiTypes)
	if err != nil {
		h.logr.Error("failed to list pois", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *POIHandler) GetPOI(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid poi id"})
		return
	}
	f, err := h.service.GetPOI(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *POIHandler) CreatePOI(w http.ResponseWriter, r *http.Request) {
	var payload models.POIWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	poi, err := h.service.CreatePOI(r.Context(), payload)
	if err != nil {
		h.logr.Error("failed to create poi", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, poi)
}

func (h *POIHandler) DeletePOI(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid poi id"})
		return
	}
	if err := h.service.DeletePOI(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
