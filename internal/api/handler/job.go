package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

// RunJobRequest names the job to start. Type is the short key some
// clients send.
type RunJobRequest struct {
	JobType string `json:"job_type"`
	Type    string `json:"type"`
}

// JobHandler handles job dispatch and status endpoints.
type JobHandler struct {
	jobs *service.JobService
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// RunJob handles POST /api/jobs/run.
// The job type comes from the JSON body (job_type, then type) or, failing
// that, ?job_type=.
func (h *JobHandler) RunJob(c *gin.Context) {
	var req RunJobRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
	}
	if req.JobType == "" {
		req.JobType = req.Type
	}
	if req.JobType == "" {
		req.JobType = c.Query("job_type")
	}

	run, err := h.jobs.Run(c.Request.Context(), domain.JobType(req.JobType))
	if err != nil {
		if eris.Is(err, service.ErrInvalidJobType) {
			respondError(c, http.StatusBadRequest, "job_type is required")
			return
		}
		respondInternal(c, err, "Failed to start job")
		return
	}
	c.JSON(http.StatusOK, newJobRunResponse(run))
}

// ListJobs handles GET /api/jobs/status.
func (h *JobHandler) ListJobs(c *gin.Context) {
	runs, err := h.jobs.List(c.Request.Context())
	if err != nil {
		respondInternal(c, err, "Failed to list jobs")
		return
	}
	out := make([]JobRunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, newJobRunResponse(&runs[i]))
	}
	c.JSON(http.StatusOK, out)
}

// JobLogs handles GET /api/jobs/:id/logs.
func (h *JobHandler) JobLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	logs, err := h.jobs.Logs(c.Request.Context(), id)
	if err != nil {
		if eris.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Job run not found")
			return
		}
		respondInternal(c, err, "Failed to load job logs")
		return
	}
	out := make([]JobLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, JobLogResponse{Line: l.Line, Timestamp: l.Timestamp})
	}
	c.JSON(http.StatusOK, out)
}
