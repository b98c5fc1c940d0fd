package repository

import (
	"context"
	"time"

	plandomain "github.com/classbill/classbill/internal/plan/domain"
	reconciliationdomain "github.com/classbill/classbill/internal/reconciliation/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() reconciliationdomain.Repository {
	return &repo{}
}

func (r *repo) ListExpiringUsagePlans(ctx context.Context, db *gorm.DB, from, to time.Time) ([]plandomain.BillingPlan, error) {
	var plans []plandomain.BillingPlan
	err := db.WithContext(ctx).
		Where("status = ? AND kind = ? AND end_date >= ? AND end_date < ?",
			plandomain.PlanStatusActive, plandomain.PlanKindUsage, from, to).
		Order("org_id ASC, subject_id ASC").
		Find(&plans).Error
	return plans, err
}

func (r *repo) ListExpiredActivePlans(ctx context.Context, db *gorm.DB, before time.Time) ([]plandomain.BillingPlan, error) {
	stmt := db.WithContext(ctx).
		Where("status = ? AND end_date < ?", plandomain.PlanStatusActive, before).
		Order("org_id ASC, subject_id ASC")
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var plans []plandomain.BillingPlan
	err := stmt.Find(&plans).Error
	return plans, err
}

// ListOverdueSubjects folds the overdue pending items per subject in memory.
// Scanning an aggregated MIN(due_date) is not portable across the supported
// drivers, while a typed Find is.
func (r *repo) ListOverdueSubjects(ctx context.Context, db *gorm.DB, before time.Time) ([]reconciliationdomain.OverdueSubject, error) {
	var items []plandomain.ScheduleItem
	err := db.WithContext(ctx).
		Select("org_id", "subject_id", "due_date").
		Where("status = ? AND due_date < ?", plandomain.ScheduleItemStatusPending, before).
		Order("org_id ASC, subject_id ASC, due_date ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	var rows []reconciliationdomain.OverdueSubject
	for _, item := range items {
		last := len(rows) - 1
		if last >= 0 && rows[last].OrgID == item.OrgID && rows[last].SubjectID == item.SubjectID {
			rows[last].ItemCount++
			continue
		}
		rows = append(rows, reconciliationdomain.OverdueSubject{
			OrgID:       item.OrgID,
			SubjectID:   item.SubjectID,
			ItemCount:   1,
			EarliestDue: item.DueDate,
		})
	}
	return rows, nil
}
