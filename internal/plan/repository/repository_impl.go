package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *plandomain.BillingPlan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []plandomain.ScheduleItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*plandomain.BillingPlan, error) {
	var plan plandomain.BillingPlan
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*plandomain.BillingPlan, error) {
	stmt := db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var plan plandomain.BillingPlan
	if err := stmt.First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) FindActiveBySubjectID(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID) (*plandomain.BillingPlan, error) {
	var plan plandomain.BillingPlan
	err := db.WithContext(ctx).
		Where("org_id = ? AND subject_id = ? AND status = ?", orgID, subjectID, plandomain.PlanStatusActive).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) CountActiveBySubjectID(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM billing_plans WHERE org_id = ? AND subject_id = ? AND status = ?`,
		orgID,
		subjectID,
		plandomain.PlanStatusActive,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orgID, planID snowflake.ID) ([]plandomain.ScheduleItem, error) {
	var items []plandomain.ScheduleItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND plan_id = ?", orgID, planID).
		Order("seq ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) ListPendingItemsBySubject(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID) ([]plandomain.ScheduleItem, error) {
	var items []plandomain.ScheduleItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND subject_id = ? AND status = ?", orgID, subjectID, plandomain.ScheduleItemStatusPending).
		Order("due_date ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) FindItemForUpdate(ctx context.Context, db *gorm.DB, orgID, itemID snowflake.ID) (*plandomain.ScheduleItem, error) {
	stmt := db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, itemID)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item plandomain.ScheduleItem
	if err := stmt.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) MarkItemPaid(ctx context.Context, db *gorm.DB, orgID, itemID snowflake.ID) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE schedule_items SET status = ?, paid_at = ?, updated_at = ? WHERE org_id = ? AND id = ? AND status = ?`,
		plandomain.ScheduleItemStatusPaid,
		now,
		now,
		orgID,
		itemID,
		plandomain.ScheduleItemStatusPending,
	).Error
}

func (r *repo) CountPendingItems(ctx context.Context, db *gorm.DB, orgID, planID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM schedule_items WHERE org_id = ? AND plan_id = ? AND status = ?`,
		orgID,
		planID,
		plandomain.ScheduleItemStatusPending,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, plan *plandomain.BillingPlan) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_plans
		 SET status = ?, completed_at = ?, cancelled_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		plan.Status,
		plan.CompletedAt,
		plan.CancelledAt,
		plan.UpdatedAt,
		plan.OrgID,
		plan.ID,
	).Error
}
