package gathering

import "time"

const (
	RoleCreator = "creator"
	RoleMember  = "member"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusKicked   = "kicked"
)

type Gathering struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	Title            string    `gorm:"not null"`
	Description      string    `gorm:"type:text"`
	CreatorID        string    `gorm:"not null;index"`
	MaxMembers       int       `gorm:"not null"`
	CurrentMembers   int       `gorm:"not null;default:0"`
	ApprovalRequired bool      `gorm:"not null;default:false"`
	IsCompleted      bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

type Membership struct {
	GatheringID string    `gorm:"type:uuid;primaryKey"`
	UserID      string    `gorm:"primaryKey"`
	Status      string    `gorm:"type:varchar(16);not null;index"`
	Role        string    `gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`

	Gathering Gathering `gorm:"foreignKey:GatheringID;references:ID;constraint:OnDelete:CASCADE"`
}

// IsActive reports whether the row still participates in the gathering.
// Rejected and kicked rows stay for audit but grant nothing.
func (m Membership) IsActive() bool {
	return m.Status == StatusPending || m.Status == StatusApproved
}
