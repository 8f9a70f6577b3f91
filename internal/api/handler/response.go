package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/api/middleware"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

// LeadResponse is the wire form of a lead. The ID is a string for the frontend.
type LeadResponse struct {
	ID             string          `json:"id"`
	OrgName        string          `json:"orgName"`
	CIDR           string          `json:"cidr"`
	Size           int64           `json:"size"`
	Score          int             `json:"score"`
	Stage          string          `json:"stage"`
	Owner          string          `json:"owner"`
	NextActionDate *time.Time      `json:"nextActionDate"`
	ScoreBreakdown json.RawMessage `json:"scoreBreakdown"`
	LastUpdated    time.Time       `json:"lastUpdated"`
	Notes          string          `json:"notes,omitempty"`
}

func newLeadResponse(l *domain.Lead) LeadResponse {
	breakdown := json.RawMessage("null")
	if len(l.ScoreBreakdown) > 0 {
		breakdown = json.RawMessage(l.ScoreBreakdown)
	}
	return LeadResponse{
		ID:             strconv.FormatUint(uint64(l.ID), 10),
		OrgName:        l.OrgName,
		CIDR:           l.CIDR,
		Size:           l.Size,
		Score:          l.Score,
		Stage:          string(l.Stage),
		Owner:          l.Owner,
		NextActionDate: l.NextActionDate,
		ScoreBreakdown: breakdown,
		LastUpdated:    l.LastUpdated,
		Notes:          l.Notes,
	}
}

func newLeadResponses(leads []domain.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for i := range leads {
		out = append(out, newLeadResponse(&leads[i]))
	}
	return out
}

// MetricsResponse is the dashboard payload.
type MetricsResponse struct {
	TotalInventoryIPs int64          `json:"totalInventoryIps"`
	ActiveLeads       int64          `json:"activeLeads"`
	ConversionRate    float64        `json:"conversionRate"`
	PipelineValueUSD  float64        `json:"pipelineValueUsd"`
	UrgentFollowups   []LeadResponse `json:"urgentFollowups"`
	InventoryTrend30d float64        `json:"inventoryTrend30d"`
	RoutingShifts24h  int64          `json:"routingShifts24h"`
	NewCandidates24h  int64          `json:"newCandidates24h"`
}

func newMetricsResponse(m *service.Metrics) MetricsResponse {
	return MetricsResponse{
		TotalInventoryIPs: m.TotalInventoryIPs,
		ActiveLeads:       m.ActiveLeads,
		ConversionRate:    m.ConversionRate,
		PipelineValueUSD:  m.PipelineValueUSD,
		UrgentFollowups:   newLeadResponses(m.UrgentFollowups),
		InventoryTrend30d: m.InventoryTrend30d,
		RoutingShifts24h:  m.RoutingShifts24h,
		NewCandidates24h:  m.NewCandidates24h,
	}
}

// JobRunResponse is the wire form of a job run.
type JobRunResponse struct {
	ID         uint       `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Progress   int        `json:"progress"`
	Error      *string    `json:"error"`
}

func newJobRunResponse(r *domain.JobRun) JobRunResponse {
	return JobRunResponse{
		ID:         r.ID,
		Type:       string(r.Type),
		Status:     string(r.Status),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Progress:   r.Progress,
		Error:      r.Error,
	}
}

// JobLogResponse is one log line of a job run.
type JobLogResponse struct {
	Line      string    `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// respondInternal logs err with its stack and hides it from the client.
func respondInternal(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	middleware.GetLogger(c).
		WithField("stack", eris.ToString(err, true)).
		Error(msg)
	respondError(c, http.StatusInternalServerError, msg)
}

// parseID reads a numeric :id path parameter. Unknown ids, 0 included,
// are left for the store to report as not found.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "id must be a non-negative integer")
		return 0, false
	}
	return uint(id), true
}
