package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

// MetricsHandler serves the dashboard aggregates.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Metrics handles GET /api/metrics.
func (h *MetricsHandler) Metrics(c *gin.Context) {
	m, err := h.metrics.Compute(c.Request.Context())
	if err != nil {
		respondInternal(c, err, "Failed to compute metrics")
		return
	}
	c.JSON(http.StatusOK, newMetricsResponse(m))
}
