package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"

	"tsp-router/internal/apperr"
	"tsp-router/internal/database"
	"tsp-router/internal/logging"
	"tsp-router/internal/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// TourPlanner plans a tour over a list of addresses
type TourPlanner interface {
	Plan(ctx context.Context, algorithm models.Algorithm, locations []string) (*models.TourResult, error)
	Depot() string
}

// HealthChecker is implemented by cache backends that can report liveness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler provides common handler utilities and dependencies
type Handler struct {
	Planner      TourPlanner
	Cache        database.DistanceCacheRepository
	CacheBackend string
	Templates    *template.Template
	Logger       *log.Logger
}

// TourRequest is the body accepted by every tour endpoint
type TourRequest struct {
	Locations []string `json:"locations"`
}

// TourResponse is the success body of the tour endpoints
type TourResponse struct {
	Success          bool             `json:"success"`
	OrderedLocations []string         `json:"orderedLocations"`
	TotalDistance    *float64         `json:"totalDistance,omitempty"`
	TotalDuration    *float64         `json:"totalDuration,omitempty"`
	Algorithm        models.Algorithm `json:"algorithm,omitempty"`
	Legs             []models.TourLeg `json:"legs,omitempty"`
}

// FailureResponse is the body of every failed request
type FailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// logger returns the request-scoped logger attached by the server middleware.
func (h *Handler) logger(r *http.Request) *log.Logger {
	return logging.FromContextOr(r.Context(), logging.OrDefault(h.Logger))
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeFailure reports err as {"success": false, "message": ...}. Planning
// failures use status 200, matching what existing clients expect.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, status int, err error) {
	logger := h.logger(r)
	switch apperr.GetCode(err) {
	case apperr.CodeInternal, apperr.CodeProviderFailure:
		logger.Error("Request failed", "path", r.URL.Path, "err", err)
	default:
		logger.Warn("Request rejected", "path", r.URL.Path, "err", err)
	}
	h.writeJSON(w, status, FailureResponse{Success: false, Message: apperr.UserMessage(err)})
}

// decodeTourRequest reads the JSON body. A missing or malformed body is an
// INVALID_INPUT error.
func decodeTourRequest(w http.ResponseWriter, r *http.Request) (*TourRequest, error) {
	var req TourRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, err, "Invalid request body")
	}
	return &req, nil
}
