package schedule

import (
	"time"

	"meetup-app-go/internal/domain/gathering"
)

const (
	StatusApproved = "approved"

	AttendancePending   = "pending"
	AttendanceConfirmed = "confirmed"
)

type Schedule struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	GatheringID    string    `gorm:"type:uuid;not null;index"`
	CreatorID      string    `gorm:"index"`
	Title          string    `gorm:"not null"`
	StartsAt       time.Time `gorm:"not null"`
	MaxMembers     int       `gorm:"not null"`
	CurrentMembers int       `gorm:"not null;default:0"`
	IsCompleted    bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`

	Gathering gathering.Gathering `gorm:"foreignKey:GatheringID;references:ID;constraint:OnDelete:CASCADE"`
}

// Membership is always approved on insert; joining a schedule only needs
// an approved gathering membership. Attendance is a self-managed sub-state
// and never touches the member counter.
type Membership struct {
	ScheduleID       string    `gorm:"type:uuid;primaryKey"`
	UserID           string    `gorm:"primaryKey"`
	Status           string    `gorm:"type:varchar(16);not null"`
	AttendanceStatus string    `gorm:"type:varchar(16);not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`

	Schedule Schedule `gorm:"foreignKey:ScheduleID;references:ID;constraint:OnDelete:CASCADE"`
}
