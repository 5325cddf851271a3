package handlers

import (
	"net/http"

	"github.com/marmos91/remotefs/pkg/api/response"
)

// HealthHandler implements the liveness/readiness probes.
type HealthHandler struct{}

// NewHealthHandler builds a HealthHandler.
func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness handles GET /health/ready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
