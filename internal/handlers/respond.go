package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"parking-bknd/internal/engine"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(data)
}

// errStatus maps engine error kinds onto HTTP statuses. Anything that is not
// an engine error is a plain 500.
func errStatus(err error) int {
	switch engine.KindOf(err) {
	case engine.GeometryTypeMismatch,
		engine.ReferenceSystemMismatch,
		engine.InvalidGeometry,
		engine.UnconvertibleGeometry:
		return http.StatusBadRequest
	case engine.ContainmentViolation,
		engine.ProximityViolation:
		return http.StatusUnprocessableEntity
	case engine.ReferencedEntityNotFound:
		return http.StatusNotFound
	case engine.StatusConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders an error with the mapped status. Engine errors surface
// their kind so clients can branch on it.
func writeError(w http.ResponseWriter, err error) {
	if kind := engine.KindOf(err); kind != "" {
		writeJSON(w, errStatus(err), map[string]any{
			"error": err.Error(),
			"kind":  string(kind),
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt64(r *http.Request, name string) *int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func queryFloat(r *http.Request, name string, fallback float64) float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
