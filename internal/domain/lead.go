package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Stage is the pipeline position of a lead.
// The set below is the known stage vocabulary; values persisted by other
// writers may fall outside it and are passed through untouched.
type Stage string

const (
	StageFound       Stage = "Found"
	StageVerified    Stage = "Verified"
	StageContacted   Stage = "Contacted"
	StageNDA         Stage = "NDA"
	StageNegotiating Stage = "Negotiating"
	StageClosedWon   Stage = "Closed/Won"
	StageClosedLost  Stage = "Closed/Lost"
)

// KnownStages lists the stages in pipeline order.
var KnownStages = []Stage{
	StageFound,
	StageVerified,
	StageContacted,
	StageNDA,
	StageNegotiating,
	StageClosedWon,
	StageClosedLost,
}

// IsKnown reports whether s belongs to KnownStages.
func (s Stage) IsKnown() bool {
	for _, k := range KnownStages {
		if s == k {
			return true
		}
	}
	return false
}

// IsClosed reports whether s is a terminal stage.
func (s Stage) IsClosed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Lead is a tracked acquisition/sale opportunity for an IP block.
type Lead struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrgName        string         `gorm:"type:text" json:"orgName"`
	CIDR           string         `gorm:"column:cidr;type:text" json:"cidr"`
	Size           int64          `json:"size"`
	Score          int            `gorm:"index:idx_leads_score" json:"score"`
	Stage          Stage          `gorm:"type:text;default:Found;index:idx_leads_stage" json:"stage"`
	Owner          string         `gorm:"type:text" json:"owner"`
	NextActionDate *time.Time     `gorm:"index:idx_leads_next_action_date" json:"nextActionDate"`
	CreatedAt      time.Time      `gorm:"index:idx_leads_created_at" json:"createdAt"`
	LastUpdated    time.Time      `gorm:"column:last_updated;autoUpdateTime" json:"lastUpdated"`
	ScoreBreakdown datatypes.JSON `gorm:"column:score_breakdown" json:"scoreBreakdown"`
	Notes          string         `gorm:"type:text" json:"notes,omitempty"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string {
	return "leads"
}
