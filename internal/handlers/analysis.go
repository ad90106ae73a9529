package handlers

import (
	"net/http"

	"parking-bknd/internal/geo"
	"parking-bknd/internal/services"

	"go.uber.org/zap"
)

type AnalysisHandler struct {
	service *services.AnalysisService
	logr    *zap.Logger
}

func NewAnalysisHandler(svc *services.AnalysisService, logr *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{service: svc, logr: logr}
}

func (h *AnalysisHandler) OccupancyHeatmap(w http.ResponseWriter, r *http.Request) {
	fc, err := h.service.OccupancyHeatmap(r.Context())
	if err != nil {
		h.logr.Error("occupancy heatmap failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *AnalysisHandler) OccupancyGrid(w http.ResponseWriter, r *http.Request) {
	cellSize := queryFloat(r, "cell_size", 100)
	fc, err := h.service.OccupancyGrid(r.Context(), cellSize)
	if err != nil {
		h.logr.Error("occupancy grid failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *AnalysisHandler) ViolationHotspots(w http.ResponseWriter, r *http.Request) {
	cellSize := queryFloat(r, "cell_size", 100)
	fc, err := h.service.ViolationHotspots(r.Context(), cellSize)
	if err != nil {
		h.logr.Error("violation hotspots failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *AnalysisHandler) Accessibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lng") == "" || q.Get("lat") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "lat and lng are required"})
		return
	}
	center := geo.Point{
		Lon: queryFloat(r, "lng", 0),
		Lat: queryFloat(r, "lat", 0),
	}
	radius := queryFloat(r, "radius", 400)

	report, err := h.service.Accessibility(r.Context(), center, radius)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AnalysisHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.DashboardSummary(r.Context())
	if err != nil {
		h.logr.Error("dashboard summary failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
