// Package domain contains persistence models for billing plans and their
// installment schedules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PlanStatus represents lifecycle states for a billing plan.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
	PlanStatusCancelled PlanStatus = "CANCELLED"
)

// PlanKind distinguishes fixed installment agreements from usage-metered ones.
type PlanKind string

const (
	PlanKindInstallment PlanKind = "INSTALLMENT"
	PlanKindUsage       PlanKind = "USAGE"
)

// ScheduleItemStatus represents the settlement state of one due obligation.
type ScheduleItemStatus string

const (
	ScheduleItemStatusPending ScheduleItemStatus = "PENDING"
	ScheduleItemStatusPaid    ScheduleItemStatus = "PAID"
)

// BillingPlan is an installment or usage-metered agreement for one subject.
// At most one ACTIVE plan exists per subject; a partial unique index in the
// migrations backs the application-level check.
type BillingPlan struct {
	ID               snowflake.ID      `gorm:"primaryKey"`
	OrgID            snowflake.ID      `gorm:"not null;index"`
	SubjectID        snowflake.ID      `gorm:"not null;index"`
	Kind             PlanKind          `gorm:"type:text;not null"`
	Status           PlanStatus        `gorm:"type:text;not null"`
	TotalAmount      int64             `gorm:"not null"`
	InstallmentCount int               `gorm:"not null"`
	HourlyRate       *int64            `gorm:""`
	CommittedHours   *int64            `gorm:""`
	StartDate        time.Time         `gorm:"not null"`
	EndDate          time.Time         `gorm:"not null"`
	CompletedAt      *time.Time        `gorm:""`
	CancelledAt      *time.Time        `gorm:""`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingPlan) TableName() string { return "billing_plans" }

// ScheduleItem is one due obligation belonging to a billing plan. Items are
// atomic: an item flips to PAID only through a payment covering it exactly.
type ScheduleItem struct {
	ID        snowflake.ID       `gorm:"primaryKey"`
	OrgID     snowflake.ID       `gorm:"not null;index"`
	PlanID    snowflake.ID       `gorm:"not null;index"`
	SubjectID snowflake.ID       `gorm:"not null;index"`
	Seq       int                `gorm:"not null"`
	DueDate   time.Time          `gorm:"not null;index"`
	Amount    int64              `gorm:"not null"`
	Status    ScheduleItemStatus `gorm:"type:text;not null"`
	PaidAt    *time.Time         `gorm:""`
	CreatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ScheduleItem) TableName() string { return "schedule_items" }
