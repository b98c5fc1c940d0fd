package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *BillingPlan) error
	InsertItems(ctx context.Context, db *gorm.DB, items []ScheduleItem) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*BillingPlan, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*BillingPlan, error)
	FindActiveBySubjectID(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID) (*BillingPlan, error)
	CountActiveBySubjectID(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID) (int64, error)
	ListItems(ctx context.Context, db *gorm.DB, orgID, planID snowflake.ID) ([]ScheduleItem, error)
	ListPendingItemsBySubject(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID) ([]ScheduleItem, error)
	FindItemForUpdate(ctx context.Context, db *gorm.DB, orgID, itemID snowflake.ID) (*ScheduleItem, error)
	MarkItemPaid(ctx context.Context, db *gorm.DB, orgID, itemID snowflake.ID) error
	CountPendingItems(ctx context.Context, db *gorm.DB, orgID, planID snowflake.ID) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, plan *BillingPlan) error
}
