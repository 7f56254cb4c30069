package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tsp-router/internal/apperr"
	"tsp-router/internal/export"
	"tsp-router/internal/models"
)

// HandleGreedy handles POST /greedy
func (h *Handler) HandleGreedy(w http.ResponseWriter, r *http.Request) {
	h.handleTour(w, r, models.AlgorithmGreedy, false)
}

// HandleKruskal handles POST /kruskal
func (h *Handler) HandleKruskal(w http.ResponseWriter, r *http.Request) {
	h.handleTour(w, r, models.AlgorithmKruskal, false)
}

// HandlePlanTour handles POST /api/v1/tours/{algorithm}
func (h *Handler) HandlePlanTour(w http.ResponseWriter, r *http.Request) {
	algorithm, ok := h.algorithmParam(w, r)
	if !ok {
		return
	}
	h.handleTour(w, r, algorithm, true)
}

func (h *Handler) handleTour(w http.ResponseWriter, r *http.Request, algorithm models.Algorithm, detailed bool) {
	result, ok := h.plan(w, r, algorithm)
	if !ok {
		return
	}

	resp := TourResponse{
		Success:          true,
		OrderedLocations: result.OrderedLocations,
		TotalDistance:    result.TotalDistanceMeters,
	}
	if detailed {
		resp.TotalDuration = result.TotalDurationSecs
		resp.Algorithm = result.Algorithm
		resp.Legs = result.Legs
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleExportTour handles POST /api/v1/tours/{algorithm}/export
func (h *Handler) HandleExportTour(w http.ResponseWriter, r *http.Request) {
	algorithm, ok := h.algorithmParam(w, r)
	if !ok {
		return
	}
	result, ok := h.plan(w, r, algorithm)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTour(&buf, result); err != nil {
		h.writeFailure(w, r, http.StatusInternalServerError, apperr.Wrap(apperr.CodeInternal, err, "failed to write workbook"))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tour-%s.xlsx"`, algorithm))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// plan decodes the request and runs the planner. On failure the response has
// already been written.
func (h *Handler) plan(w http.ResponseWriter, r *http.Request, algorithm models.Algorithm) (*models.TourResult, bool) {
	req, err := decodeTourRequest(w, r)
	if err != nil {
		h.writeFailure(w, r, http.StatusOK, err)
		return nil, false
	}

	result, err := h.Planner.Plan(r.Context(), algorithm, req.Locations)
	if err != nil {
		h.writeFailure(w, r, http.StatusOK, err)
		return nil, false
	}
	return result, true
}

func (h *Handler) algorithmParam(w http.ResponseWriter, r *http.Request) (models.Algorithm, bool) {
	name := chi.URLParam(r, "algorithm")
	algorithm, ok := models.ParseAlgorithm(name)
	if !ok {
		h.writeFailure(w, r, http.StatusNotFound, apperr.New(apperr.CodeInvalidInput, "Unknown algorithm %q", name))
		return "", false
	}
	return algorithm, true
}
