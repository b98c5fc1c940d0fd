// Package domain contains persistence models for the payment ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentStatus represents settlement states of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// PaymentCategory classifies a payment for aggregation. Only TUITION reduces
// the subject's outstanding due; the other categories are billed on top.
type PaymentCategory string

const (
	CategoryTuition          PaymentCategory = "TUITION"
	CategoryRegistration     PaymentCategory = "REGISTRATION"
	CategoryUsageCharge      PaymentCategory = "USAGE_CHARGE"
	CategoryAdditionalCharge PaymentCategory = "ADDITIONAL_CHARGE"
)

// Payment is an immutable financial event. The only permitted mutations are
// receipt-number backfill and the PENDING to COMPLETED transition. PaidAt is
// set when the payment completes; a staged bill carries none.
type Payment struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	OrgID          snowflake.ID    `gorm:"not null;index"`
	SubjectID      snowflake.ID    `gorm:"not null;index"`
	PlanID         *snowflake.ID   `gorm:"index"`
	ScheduleItemID *snowflake.ID   `gorm:"index"`
	Amount         int64           `gorm:"not null"`
	Discount       int64           `gorm:"not null;default:0"`
	Mode           string          `gorm:"type:text;not null"`
	Category       PaymentCategory `gorm:"type:text;not null"`
	Status         PaymentStatus   `gorm:"type:text;not null"`
	ReceiptNo      *string         `gorm:"type:text"`
	TransactionID  *string         `gorm:"type:text"`
	PaidAt         *time.Time      `gorm:""`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
