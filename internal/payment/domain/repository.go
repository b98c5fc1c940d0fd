package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Payment, error)
	ListMissingReceipts(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Payment, error)
	// PersistReceiptIfAbsent writes the receipt number only when none is set
	// yet and reports whether this call won the write.
	PersistReceiptIfAbsent(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, receiptNo string) (bool, error)
	// MarkCompleted transitions a pending payment and stamps its paid time.
	MarkCompleted(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, paidAt time.Time) error
	CountCompletedByPlan(ctx context.Context, db *gorm.DB, orgID, planID snowflake.ID) (int64, error)
}
