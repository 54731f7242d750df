package handlers

import (
	"net/http"

	"github.com/dom/rbac-backend/internal/api/httputil"
	"github.com/dom/rbac-backend/internal/service"
)

type HealthHandler struct {
	healthService *service.HealthService
}

func NewHealthHandler(healthService *service.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// Check always answers 200; a database outage shows up as DEGRADED in the
// body.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.healthService.Check(r.Context()))
}
