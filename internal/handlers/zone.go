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

type ZoneHandler struct {
	service *services.ZoneService
	logr    *zap.Logger
}

func NewZoneHandler(svc *services.ZoneService, logr *zap.Logger) *ZoneHandler {
	return &ZoneHandler{service: svc, logr: logr}
}

func (h *ZoneHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	zoneTypes := utils.ParseQueryList(r.URL.Query(), "zone_type")
	activeOnly := r.URL.Query().Get("active") == "true"

	fc, err := h.service.ListZones(r.Context(), zoneTypes, activeOnly)
	if err != nil {
		h.logr.Error("failed to list zones", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *ZoneHandler) GetZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid zone id"})
		return
	}
	f, err := h.service.GetZone(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *ZoneHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	var payload models.ZoneWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	zone, err := h.service.CreateZone(r.Context(), payload)
	if err != nil {
		h.logr.Error("failed to create zone", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, zone)
}

func (h *ZoneHandler) UpdateZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid zone id"})
		return
	}
	var payload models.ZoneWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	zone, err := h.service.UpdateZone(r.Context(), id, payload)
	if err != nil {
		h.logr.Error("failed to update zone", zap.Int64("zone_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

func (h *ZoneHandler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid zone id"})
		return
	}
	if err := h.service.DeleteZone(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *ZoneHandler) GenerateBays(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid zone id"})
		return
	}
	clear := r.URL.Query().Get("clear") == "true"

	bays, err := h.service.GenerateBays(r.Context(), id, clear)
	if err != nil {
		h.logr.Error("bay generation failed", zap.Int64("zone_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	h.logr.Info("generated bays", zap.Int64("zone_id", id), zap.Int("count", len(bays)))
	writeJSON(w, http.StatusCreated, map[string]any{
		"zone_id": id,
		"count":   len(bays),
		"bays":    bays,
	})
}

func (h *ZoneHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid zone id"})
		return
	}
	occ, err := h.service.Occupancy(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (h *ZoneHandler) ContainingZones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lng") == "" || q.Get("lat") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "lat and lng are required"})
		return
	}
	p := geo.Point{
		Lon: queryFloat(r, "lng", 0),
		Lat: queryFloat(r, "lat", 0),
	}
	fc, err := h.service.ContainingZones(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}
