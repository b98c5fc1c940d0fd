package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AttendanceEvent records one check-in, and once the subject leaves, the
// matching check-out. Duration is derived from the two timestamps at
// check-out time and never edited afterwards.
type AttendanceEvent struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"index;not null"`
	SubjectID snowflake.ID `gorm:"index;not null"`

	CheckInAt       time.Time  `gorm:"not null"`
	CheckOutAt      *time.Time `gorm:""`
	DurationMinutes *int64     `gorm:""`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (AttendanceEvent) TableName() string {
	return "attendance_events"
}
