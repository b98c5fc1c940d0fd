// Package domain contains the charge catalog consumed by the aggregator.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ChargeType classifies a catalog entry.
type ChargeType string

const (
	ChargeTypeTuition      ChargeType = "TUITION"
	ChargeTypeRegistration ChargeType = "REGISTRATION"
	ChargeTypeAdditional   ChargeType = "ADDITIONAL"
)

// ChargeFrequency says how often a catalog entry recurs.
type ChargeFrequency string

const (
	FrequencyOneTime ChargeFrequency = "ONE_TIME"
	FrequencyMonthly ChargeFrequency = "MONTHLY"
	FrequencyAnnual  ChargeFrequency = "ANNUAL"
)

// CatalogEntry is an expected charge for a program class within one
// organization.
type CatalogEntry struct {
	ID           snowflake.ID    `gorm:"primaryKey"`
	OrgID        snowflake.ID    `gorm:"not null;index"`
	ProgramClass string          `gorm:"type:text;not null;index"`
	Name         string          `gorm:"type:text;not null"`
	Type         ChargeType      `gorm:"type:text;not null"`
	Amount       int64           `gorm:"not null"`
	Frequency    ChargeFrequency `gorm:"type:text;not null"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CatalogEntry) TableName() string { return "charge_catalog" }

// Charge is the read model served to the aggregator.
type Charge struct {
	Type      ChargeType      `json:"type"`
	Amount    int64           `json:"amount"`
	Frequency ChargeFrequency `json:"frequency"`
}

// Catalog resolves the expected charges for a program class.
type Catalog interface {
	ApplicableCharges(ctx context.Context, orgID snowflake.ID, programClass string) ([]Charge, error)
}

var ErrInvalidProgramClass = errors.New("invalid_program_class")
