package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/classbill/classbill/internal/catalog/domain"
	"github.com/classbill/classbill/internal/clock"
	"github.com/classbill/classbill/internal/orgcontext"
	paymentdomain "github.com/classbill/classbill/internal/payment/domain"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock       clock.Clock
	cache       snapshotdomain.Cache
	catalog     catalogdomain.Catalog
	subjectRepo subjectdomain.Repository
	planRepo    plandomain.Repository
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Cache       snapshotdomain.Cache
	Catalog     catalogdomain.Catalog
	SubjectRepo subjectdomain.Repository
	PlanRepo    plandomain.Repository
}

func NewService(p ServiceParam) snapshotdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("snapshot.service"),

		clock:       p.Clock,
		cache:       p.Cache,
		catalog:     p.Catalog,
		subjectRepo: p.SubjectRepo,
		planRepo:    p.PlanRepo,
	}
}

// GetFinancialSnapshot recomputes the subject's financial state from the
// ledger, the schedule and the charge catalog. The aggregation itself is the
// pure domain.Compute; this layer only gathers inputs and caches results.
func (s *Service) GetFinancialSnapshot(ctx context.Context, subjectID string) (snapshotdomain.FinancialSnapshot, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return snapshotdomain.FinancialSnapshot{}, snapshotdomain.ErrInvalidOrganization
	}

	id, err := snowflake.ParseString(strings.TrimSpace(subjectID))
	if err != nil || id == 0 {
		return snapshotdomain.FinancialSnapshot{}, snapshotdomain.ErrInvalidSubject
	}

	if cached, ok := s.cache.Get(orgID.String(), id.String()); ok {
		return cached, nil
	}

	subject, err := s.subjectRepo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return snapshotdomain.FinancialSnapshot{}, err
	}
	if subject == nil {
		return snapshotdomain.FinancialSnapshot{}, snapshotdomain.ErrSubjectNotFound
	}

	expected, err := s.expectedCharges(ctx, orgID, subject)
	if err != nil {
		return snapshotdomain.FinancialSnapshot{}, err
	}

	collectedTuition, collectedAdditional, err := s.collectedAmounts(ctx, orgID, id)
	if err != nil {
		return snapshotdomain.FinancialSnapshot{}, err
	}

	pendingItems, err := s.planRepo.ListPendingItemsBySubject(ctx, s.db, orgID, id)
	if err != nil {
		return snapshotdomain.FinancialSnapshot{}, err
	}
	pendingDueDates := make([]time.Time, 0, len(pendingItems))
	for _, item := range pendingItems {
		pendingDueDates = append(pendingDueDates, item.DueDate)
	}

	snapshot := snapshotdomain.Compute(snapshotdomain.Inputs{
		Expected:            expected,
		CollectedTuition:    collectedTuition,
		CollectedAdditional: collectedAdditional,
		PendingDueDates:     pendingDueDates,
		Now:                 s.clock.Now(),
	})
	snapshot.SubjectID = id.String()

	s.cache.Set(orgID.String(), id.String(), snapshot)
	return snapshot, nil
}

// expectedCharges resolves the expected tuition total. A custom plan amount
// takes precedence over the catalog when present.
func (s *Service) expectedCharges(ctx context.Context, orgID snowflake.ID, subject *subjectdomain.Subject) (int64, error) {
	activePlan, err := s.planRepo.FindActiveBySubjectID(ctx, s.db, orgID, subject.ID)
	if err != nil {
		return 0, err
	}
	if activePlan != nil && activePlan.TotalAmount > 0 {
		return activePlan.TotalAmount, nil
	}

	charges, err := s.catalog.ApplicableCharges(ctx, orgID, subject.ProgramClass)
	if err != nil {
		return 0, err
	}

	var expected int64
	for _, charge := range charges {
		if charge.Type == catalogdomain.ChargeTypeTuition {
			expected += charge.Amount
		}
	}
	return expected, nil
}

func (s *Service) collectedAmounts(ctx context.Context, orgID, subjectID snowflake.ID) (tuition int64, additional int64, err error) {
	type row struct {
		Category paymentdomain.PaymentCategory `gorm:"column:category"`
		Total    int64                         `gorm:"column:total"`
	}

	var rows []row
	err = s.db.WithContext(ctx).Raw(
		`SELECT category, COALESCE(SUM(amount - discount), 0) AS total
		 FROM payments
		 WHERE org_id = ? AND subject_id = ? AND status = ?
		 GROUP BY category`,
		orgID,
		subjectID,
		paymentdomain.PaymentStatusCompleted,
	).Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	for _, r := range rows {
		if r.Category == paymentdomain.CategoryTuition {
			tuition += r.Total
		} else {
			additional += r.Total
		}
	}
	return tuition, additional, nil
}
