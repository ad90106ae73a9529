package handlers

import (
	"encoding/json"
	"net/http"

	"parking-bknd/internal/geo"
	"parking-bknd/internal/models"
	"parking-bknd/internal/services"
	"parking-bknd/internal/utils"

	"go.uber.org/zap"
)

type BayHandler struct {
	service *services.BayService
	logr    *zap.Logger
}

func NewBayHandler(svc *services.BayService, logr *zap.Logger) *BayHandler {
	return &BayHandler{service: svc, logr: logr}
}

func (h *BayHandler) ListBays(w http.ResponseWriter, r *http.Request) {
	zoneID := queryInt64(r, "zone_id")
	statuses := utils.ParseQueryList(r.URL.Query(), "status")

	fc, err := h.service.ListBays(r.Context(), zoneID, statuses)
	if err != nil {
		h.logr.Error("failed to list bays", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *BayHandler) GetBay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid bay id"})
		return
	}
	f, err := h.service.GetBay(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *BayHandler) CreateBay(w http.ResponseWriter, r *http.Request) {
	var payload models.BayWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	bay, err := h.service.CreateBay(r.Context(), payload)
	if err != nil {
		h.logr.Error("failed to create bay", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bay)
}

func (h *BayHandler) UpdateBay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid bay id"})
		return
	}
	var payload models.BayWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	bay, err := h.service.UpdateBay(r.Context(), id, payload)
	if err != nil {
		h.logr.Error("failed to update bay", zap.Int64("bay_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bay)
}

func (h *BayHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid bay id"})
		return
	}
	var change models.BayStatusChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if err := h.service.SetStatus(r.Context(), id, change); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bay_id": id,
		"status": change.New,
	})
}

func (h *BayHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lng") == "" || q.Get("lat") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "lat and lng are required"})
		return
	}
	center := geo.Point{
		Lon: queryFloat(r, "lng", 0),
		Lat: queryFloat(r, "lat", 0),
	}
	radius := queryFloat(r, "radius", 250)
	status := q.Get("status")

	fc, err := h.service.Nearby(r.Context(), center, radius, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}
