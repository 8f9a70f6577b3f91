package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

// dateLayouts are accepted for nextActionDate, tried in order.
// Values without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NullableTime records whether a JSON field was present, so an explicit
// null can be told apart from an omitted key.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "nextActionDate must be a string or null")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t = t.UTC()
			n.Value = &t
			return nil
		}
	}
	return eris.Errorf("nextActionDate %q is not an ISO-8601 timestamp", raw)
}

// UpdateLeadRequest is the PATCH /api/leads/:id body. Absent keys are left unchanged.
type UpdateLeadRequest struct {
	Stage          *string      `json:"stage"`
	NextActionDate NullableTime `json:"nextActionDate"`
	Notes          *string      `json:"notes"`
}

func (r *UpdateLeadRequest) patch() service.LeadPatch {
	var p service.LeadPatch
	if r.Stage != nil {
		stage := domain.Stage(*r.Stage)
		p.Stage = &stage
	}
	if r.NextActionDate.Set {
		if r.NextActionDate.Value == nil {
			p.ClearNextActionDate = true
		} else {
			p.NextActionDate = r.NextActionDate.Value
		}
	}
	p.Notes = r.Notes
	return p
}

// LeadHandler handles lead endpoints.
type LeadHandler struct {
	leads *service.LeadService
}

// NewLeadHandler creates a new lead handler.
// Parameters:
//   - leads: lead service instance.
// Returns:
//   - *LeadHandler: initialized handler.
func NewLeadHandler(leads *service.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

// ListLeads handles GET /api/leads.
func (h *LeadHandler) ListLeads(c *gin.Context) {
	leads, err := h.leads.List(c.Request.Context())
	if err != nil {
		respondInternal(c, err, "Failed to list leads")
		return
	}
	c.JSON(http.StatusOK, newLeadResponses(leads))
}

// GetLead handles GET /api/leads/:id.
func (h *LeadHandler) GetLead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.leads.Get(c.Request.Context(), id)
	if err != nil {
		if eris.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Lead not found")
			return
		}
		respondInternal(c, err, "Failed to load lead")
		return
	}
	c.JSON(http.StatusOK, newLeadResponse(lead))
}

// UpdateLead handles PATCH /api/leads/:id.
func (h *LeadHandler) UpdateLead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	lead, err := h.leads.Update(c.Request.Context(), id, req.patch())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, newLeadResponse(lead))
	case eris.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "Lead not found")
	case eris.Is(err, service.ErrInvalidStage):
		respondError(c, http.StatusBadRequest, "Unknown stage: "+*req.Stage)
	default:
		respondInternal(c, err, "Failed to update lead")
	}
}
