package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	health *service.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(health *service.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// Health returns the liveness of the store, the broker and the worker.
// It always answers 200; degraded probes show up as "error" fields.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.health.Check(c.Request.Context()))
}
