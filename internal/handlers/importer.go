package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"parking-bknd/internal/models"
	"parking-bknd/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ImportHandler struct {
	service *services.ImportService
	logr    *zap.Logger
}

func NewImportHandler(svc *services.ImportService, logr *zap.Logger) *ImportHandler {
	return &ImportHandler{service: svc, logr: logr}
}

func (h *ImportHandler) ImportBatch(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	var records []models.ImportRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	summary, err := h.service.ImportBatch(r.Context(), source, records)
	if err != nil {
		h.logr.Error("import batch failed", zap.String("source", source), zap.Error(err))
		writeError(w, err)
		return
	}
	h.logr.Info("import batch done",
		zap.String("source", source),
		zap.String("batch_id", summary.BatchID.String()),
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
	)
	writeJSON(w, http.StatusOK, summary)
}

func (h *ImportHandler) QueryLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	outcome := q.Get("outcome")

	var batchID *uuid.UUID
	if raw := q.Get("batch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid batch_id"})
			return
		}
		batchID = &id
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := h.service.QueryLog(r.Context(), outcome, batchID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}
