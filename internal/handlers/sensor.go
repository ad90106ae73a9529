package handlers

import (
	"encoding/json"
	"net/http"

	"parking-bknd/internal/models"
	"parking-bknd/internal/services"

	"go.uber.org/zap"
)

type SensorHandler struct {
	service *services.SensorService
	logr    *zap.Logger
}

func NewSensorHandler(svc *services.SensorService, logr *zap.Logger) *SensorHandler {
	return &SensorHandler{service: svc, logr: logr}
}

func (h *SensorHandler) ListSensors(w http.ResponseWriter, r *http.Request) {
	bayID := queryInt64(r, "bay_id")
	activeOnly := r.URL.Query().Get("active") == "true"

	fc, err := h.service.ListSensors(r.Context(), bayID, activeOnly)
	if err != nil {
		h.logr.Error("failed to list sensors", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *SensorHandler) GetSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid sensor id"})
		return
	}
	f, err := h.service.GetSensor(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *SensorHandler) CreateSensor(w http.ResponseWriter, r *http.Request) {
	var payload models.SensorWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	sensor, err := h.service.CreateSensor(r.Context(), payload)
	if err != nil {
		h.logr.Error("failed to create sensor", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sensor)
}

func (h *SensorHandler) UpdateSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid sensor id"})
		return
	}
	var payload models.SensorWrite
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	sensor, err := h.service.UpdateSensor(r.Context(), id, payload)
	if err != nil {
		h.logr.Error("failed to update sensor", zap.Int64("sensor_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

func (h *SensorHandler) DeleteSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid sensor id"})
		return
	}
	if err := h.service.DeleteSensor(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
