package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/classbill/classbill/internal/catalog/domain"
	catalogrepository "github.com/classbill/classbill/internal/catalog/repository"
	"github.com/classbill/classbill/internal/clock"
	"github.com/classbill/classbill/internal/orgcontext"
	paymentdomain "github.com/classbill/classbill/internal/payment/domain"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	planrepository "github.com/classbill/classbill/internal/plan/repository"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	subjectrepository "github.com/classbill/classbill/internal/subject/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type snapshotFixture struct {
	svc       snapshotdomain.Service
	cache     snapshotdomain.Cache
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	orgID     snowflake.ID
	subjectID snowflake.ID
}

func setupSnapshotService(t *testing.T) *snapshotFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&subjectdomain.Subject{},
		&plandomain.BillingPlan{},
		&plandomain.ScheduleItem{},
		&paymentdomain.Payment{},
		&catalogdomain.CatalogEntry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC))

	orgID := node.Generate()
	subjectID := node.Generate()
	require.NoError(t, db.Create(&subjectdomain.Subject{
		ID:           subjectID,
		OrgID:        orgID,
		Name:         "Citra",
		ProgramClass: "kindergarten-b",
		BillingKind:  subjectdomain.BillingKindInstallment,
		Status:       subjectdomain.SubjectStatusActive,
		CreatedAt:    fakeClock.Now(),
		UpdatedAt:    fakeClock.Now(),
	}).Error)

	snapCache := NewCache()
	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		Cache:       snapCache,
		Catalog:     catalogrepository.Provide(db),
		SubjectRepo: subjectrepository.Provide(),
		PlanRepo:    planrepository.Provide(),
	})

	return &snapshotFixture{
		svc:       svc,
		cache:     snapCache,
		db:        db,
		node:      node,
		clock:     fakeClock,
		orgID:     orgID,
		subjectID: subjectID,
	}
}

func (f *snapshotFixture) ctx() context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(f.orgID))
}

func (f *snapshotFixture) seedPlanWithItems(t *testing.T, total int64, count int, start time.Time) plandomain.BillingPlan {
	t.Helper()

	plan := plandomain.BillingPlan{
		ID:               f.node.Generate(),
		OrgID:            f.orgID,
		SubjectID:        f.subjectID,
		Kind:             plandomain.PlanKindInstallment,
		Status:           plandomain.PlanStatusActive,
		TotalAmount:      total,
		InstallmentCount: count,
		StartDate:        start,
		EndDate:          start.AddDate(0, count, 0),
	}
	require.NoError(t, f.db.Create(&plan).Error)

	lines, err := plandomain.BuildSchedule(plandomain.ScheduleParams{
		TotalAmount:      total,
		InstallmentCount: count,
		StartDate:        start,
		EndDate:          plan.EndDate,
	})
	require.NoError(t, err)
	for _, line := range lines {
		require.NoError(t, f.db.Create(&plandomain.ScheduleItem{
			ID:        f.node.Generate(),
			OrgID:     f.orgID,
			PlanID:    plan.ID,
			SubjectID: f.subjectID,
			Seq:       line.Seq,
			DueDate:   line.DueDate,
			Amount:    line.Amount,
			Status:    plandomain.ScheduleItemStatusPending,
		}).Error)
	}
	return plan
}

func (f *snapshotFixture) seedPayment(t *testing.T, amount, discount int64, category paymentdomain.PaymentCategory, status paymentdomain.PaymentStatus) {
	t.Helper()
	paidAt := f.clock.Now()
	require.NoError(t, f.db.Create(&paymentdomain.Payment{
		ID:        f.node.Generate(),
		OrgID:     f.orgID,
		SubjectID: f.subjectID,
		Amount:    amount,
		Discount:  discount,
		Mode:      "CASH",
		Category:  category,
		Status:    status,
		PaidAt:    &paidAt,
	}).Error)
}

func (f *snapshotFixture) markItemPaid(t *testing.T, seq int) {
	t.Helper()
	require.NoError(t, f.db.Model(&plandomain.ScheduleItem{}).
		Where("org_id = ? AND subject_id = ? AND seq = ?", f.orgID, f.subjectID, seq).
		Update("status", plandomain.ScheduleItemStatusPaid).Error)
}

func TestSnapshotPartiallyPaidWithNextDue(t *testing.T) {
	f := setupSnapshotService(t)
	// First installment is already due and settled; five remain in the future.
	f.seedPlanWithItems(t, 6000, 6, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	f.markItemPaid(t, 1)
	f.seedPayment(t, 1000, 0, paymentdomain.CategoryTuition, paymentdomain.PaymentStatusCompleted)

	snapshot, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)

	assert.Equal(t, int64(6000), snapshot.Expected)
	assert.Equal(t, int64(1000), snapshot.CollectedTuition)
	assert.Equal(t, int64(5000), snapshot.TotalDue)
	assert.Equal(t, snapshotdomain.StatePartiallyPaid, snapshot.Status)
	require.NotNil(t, snapshot.NextDueDate)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), snapshot.NextDueDate.UTC())
	assert.Zero(t, snapshot.OverdueCount)
}

func TestSnapshotOverdue(t *testing.T) {
	f := setupSnapshotService(t)
	// Two installments already due, none paid against them yet.
	f.seedPlanWithItems(t, 6000, 6, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	f.seedPayment(t, 1000, 0, paymentdomain.CategoryTuition, paymentdomain.PaymentStatusCompleted)

	snapshot, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)

	assert.Equal(t, snapshotdomain.StateOverdue, snapshot.Status)
	assert.Equal(t, 3, snapshot.OverdueCount)
}

func TestSnapshotNotPaid(t *testing.T) {
	f := setupSnapshotService(t)
	f.seedPlanWithItems(t, 6000, 6, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))

	snapshot, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)
	assert.Equal(t, snapshotdomain.StateNotPaid, snapshot.Status)
	assert.Equal(t, int64(6000), snapshot.TotalDue)
}

func TestSnapshotPendingPaymentsExcluded(t *testing.T) {
	f := setupSnapshotService(t)
	f.seedPlanWithItems(t, 6000, 6, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	f.seedPayment(t, 1000, 0, paymentdomain.CategoryTuition, paymentdomain.PaymentStatusPending)

	snapshot, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.CollectedTuition)
	assert.Equal(t, snapshotdomain.StateNotPaid, snapshot.Status)
}

func TestSnapshotDiscountReducesCollected(t *testing.T) {
	f := setupSnapshotService(t)
	f.seedPlanWithItems(t, 6000, 6, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	f.seedPayment(t, 1000, 200, paymentdomain.CategoryTuition, paymentdomain.PaymentStatusCompleted)

	snapshot, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(800), snapshot.CollectedTuition)
	assert.Equal(t, int64(5200), snapshot.TotalDue)
}

func TestSnapshotAdditionalCategoriesTrackedSeparately(t *testing.T) {
	f := setupSnapshotService(t)
	f.seedPlanWithItems(t, 6000, 6, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	f.seedPayment(t, 500, 0, paymentdomain.CategoryRegistration, paymentdomain.PaymentStatusCompleted)
	f.seedPayment(t, 300, 0, paymentdomain.CategoryUsageCharge, paymentdomain.PaymentStatusCompleted)

	snapshot, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.CollectedTuition)
	assert.Equal(t, int64(800), snapshot.CollectedAdditional)
	// Additional never reduces the tuition due.
	assert.Equal(t, int64(6000), snapshot.TotalDue)
	assert.Equal(t, snapshotdomain.StatePending, snapshot.Status)
}

func TestSnapshotFallsBackToCatalogWithoutActivePlan(t *testing.T) {
	f := setupSnapshotService(t)
	require.NoError(t, f.db.Create(&catalogdomain.CatalogEntry{
		ID:           f.node.Generate(),
		OrgID:        f.orgID,
		ProgramClass: "kindergarten-b",
		Name:         "monthly tuition",
		Type:         catalogdomain.ChargeTypeTuition,
		Frequency:    catalogdomain.FrequencyMonthly,
		Amount:       4500,
	}).Error)
	require.NoError(t, f.db.Create(&catalogdomain.CatalogEntry{
		ID:           f.node.Generate(),
		OrgID:        f.orgID,
		ProgramClass: "kindergarten-b",
		Name:         "uniform",
		Type:         catalogdomain.ChargeTypeAdditional,
		Frequency:    catalogdomain.FrequencyOneTime,
		Amount:       900,
	}).Error)

	snapshot, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)
	// Only tuition catalog entries feed expected.
	assert.Equal(t, int64(4500), snapshot.Expected)
}

func TestSnapshotCachedUntilInvalidation(t *testing.T) {
	f := setupSnapshotService(t)
	f.seedPlanWithItems(t, 6000, 6, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))

	first, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)

	f.seedPayment(t, 1000, 0, paymentdomain.CategoryTuition, paymentdomain.PaymentStatusCompleted)

	cached, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)
	assert.Equal(t, first.TotalDue, cached.TotalDue)

	f.cache.InvalidateOrg(f.orgID.String())

	fresh, err := f.svc.GetFinancialSnapshot(f.ctx(), f.subjectID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), fresh.TotalDue)
}

func TestSnapshotUnknownSubject(t *testing.T) {
	f := setupSnapshotService(t)

	_, err := f.svc.GetFinancialSnapshot(f.ctx(), f.node.Generate().String())
	assert.ErrorIs(t, err, snapshotdomain.ErrSubjectNotFound)
}
