package domain

import "time"

// Organization is a legal entity holding IP resources.
type Organization struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:text;not null;uniqueIndex:idx_organizations_name" json:"name"`
}

// TableName returns the database table name for Organization.
func (Organization) TableName() string {
	return "organizations"
}

// IPBlock is an address block under brokerage management.
// Size is the number of addresses implied by the CIDR prefix.
type IPBlock struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	CIDR      string        `gorm:"column:cidr;type:text;not null;uniqueIndex:idx_ip_blocks_cidr" json:"cidr"`
	Size      int64         `gorm:"not null;default:0" json:"size"`
	OrgID     *uint         `gorm:"index" json:"orgId,omitempty"`
	Org       *Organization `gorm:"foreignKey:OrgID" json:"-"`
	CreatedAt time.Time     `gorm:"index:idx_ip_blocks_created_at" json:"createdAt"`
}

// TableName returns the database table name for IPBlock.
func (IPBlock) TableName() string {
	return "ip_blocks"
}
