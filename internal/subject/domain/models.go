// Package domain contains persistence models for billable subjects.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SubjectStatus represents lifecycle states for a billable subject.
type SubjectStatus string

const (
	SubjectStatusActive   SubjectStatus = "ACTIVE"
	SubjectStatusEnrolled SubjectStatus = "ENROLLED"
	SubjectStatusExpired  SubjectStatus = "EXPIRED"
)

// BillingKind distinguishes installment plans from usage-metered (hourly) ones.
type BillingKind string

const (
	BillingKindInstallment BillingKind = "INSTALLMENT"
	BillingKindUsage       BillingKind = "USAGE"
)

// Subject is a billable entity (student or daycare child) scoped to one
// organization.
type Subject struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	OrgID        snowflake.ID      `gorm:"not null;index"`
	Name         string            `gorm:"type:text;not null"`
	ProgramClass string            `gorm:"type:text;not null;index"`
	BillingKind  BillingKind       `gorm:"type:text;not null"`
	Status       SubjectStatus     `gorm:"type:text;not null"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subject) TableName() string { return "subjects" }
