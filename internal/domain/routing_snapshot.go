package domain

import (
	"time"

	"gorm.io/datatypes"
)

// RoutingSnapshot is a point-in-time capture of routing/announcement state for a block.
type RoutingSnapshot struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CIDR      string         `gorm:"column:cidr;type:text;index:idx_routing_snapshots_cidr" json:"cidr"`
	RawData   datatypes.JSON `gorm:"column:raw_data" json:"rawData"`
	Timestamp time.Time      `gorm:"autoCreateTime;index:idx_routing_snapshots_timestamp" json:"timestamp"`
}

// TableName returns the database table name for RoutingSnapshot.
func (RoutingSnapshot) TableName() string {
	return "routing_snapshots"
}
