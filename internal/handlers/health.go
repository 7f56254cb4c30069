package handlers

import (
	"context"
	"net/http"
	"time"

	"tsp-router/internal/apperr"
)

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	cache := map[string]interface{}{"backend": h.CacheBackend}
	status, code := "ok", http.StatusOK

	if checker, ok := h.Cache.(HealthChecker); ok {
		if err := checker.HealthCheck(ctx); err != nil {
			h.logger(r).Warn("Cache health check failed", "backend", h.CacheBackend, "err", err)
			cache["error"] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	if h.Cache != nil && code == http.StatusOK {
		if n, err := h.Cache.Count(ctx); err == nil {
			cache["entries"] = n
		}
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status": status,
		"cache":  cache,
	})
}

// HandleClearCache handles DELETE /api/v1/cache
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}
	if err := h.Cache.Clear(r.Context()); err != nil {
		h.writeFailure(w, r, http.StatusInternalServerError, apperr.Wrap(apperr.CodeInternal, err, "failed to clear distance cache"))
		return
	}
	h.logger(r).Info("Distance cache cleared", "backend", h.CacheBackend)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
