package domain

import (
	"context"
	"time"

	plandomain "github.com/classbill/classbill/internal/plan/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// ListExpiringUsagePlans returns active usage plans whose end date falls
	// inside [from, to).
	ListExpiringUsagePlans(ctx context.Context, db *gorm.DB, from, to time.Time) ([]plandomain.BillingPlan, error)

	// ListExpiredActivePlans returns active plans whose end date is strictly
	// before the cutoff. Rows already claimed by a concurrent pass are
	// skipped where the dialect supports it.
	ListExpiredActivePlans(ctx context.Context, db *gorm.DB, before time.Time) ([]plandomain.BillingPlan, error)

	// ListOverdueSubjects groups pending schedule items past their due date
	// by subject.
	ListOverdueSubjects(ctx context.Context, db *gorm.DB, before time.Time) ([]OverdueSubject, error)
}
