package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

// AnalysisHandler proxies block analysis requests to the AI engine.
type AnalysisHandler struct {
	analysis *service.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

// Analyze handles POST /api/ai/analyze.
// Upstream failures are returned as 200 with an error field.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req service.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, h.analysis.Analyze(c.Request.Context(), req))
}
