package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/classbill/classbill/internal/clock"
	notificationdomain "github.com/classbill/classbill/internal/notification/domain"
	notificationrepository "github.com/classbill/classbill/internal/notification/repository"
	"github.com/classbill/classbill/internal/observability/metrics"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	reconciliationdomain "github.com/classbill/classbill/internal/reconciliation/domain"
	reconciliationrepository "github.com/classbill/classbill/internal/reconciliation/repository"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	subjectrepository "github.com/classbill/classbill/internal/subject/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// promauto registers on the default registry, so the metrics struct has to be
// shared across tests in this binary.
var passMetrics = metrics.NewReconciliationMetrics()

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Get(orgID, subjectID string) (snapshotdomain.FinancialSnapshot, bool) {
	return snapshotdomain.FinancialSnapshot{}, false
}

func (c *recordingCache) Set(orgID, subjectID string, snapshot snapshotdomain.FinancialSnapshot) {}

func (c *recordingCache) InvalidateOrg(orgID string) {
	c.invalidated = append(c.invalidated, orgID)
}

type reconciliationFixture struct {
	svc   *Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	cache *recordingCache
	orgID snowflake.ID
}

func setupReconciliationService(t *testing.T) *reconciliationFixture {
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
		&notificationdomain.Notification{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 9, 15, 6, 0, 0, 0, time.UTC))
	cache := &recordingCache{}

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fakeClock,
		Repo:        reconciliationrepository.Provide(),
		SubjectRepo: subjectrepository.Provide(),
		Sink: notificationrepository.ProvideSink(notificationrepository.SinkParam{
			DB:  db,
			Log: zap.NewNop(),
		}),
		Cache:   cache,
		Metrics: passMetrics,
	}).(*Service)

	return &reconciliationFixture{
		svc:   svc,
		db:    db,
		node:  node,
		clock: fakeClock,
		cache: cache,
		orgID: node.Generate(),
	}
}

func (f *reconciliationFixture) seedSubject(t *testing.T, kind subjectdomain.BillingKind) snowflake.ID {
	t.Helper()

	id := f.node.Generate()
	require.NoError(t, f.db.Create(&subjectdomain.Subject{
		ID:           id,
		OrgID:        f.orgID,
		Name:         "Bima",
		ProgramClass: "daycare-1",
		BillingKind:  kind,
		Status:       subjectdomain.SubjectStatusActive,
	}).Error)
	return id
}

func (f *reconciliationFixture) seedPlan(t *testing.T, subjectID snowflake.ID, kind plandomain.PlanKind, endDate time.Time) snowflake.ID {
	t.Helper()

	id := f.node.Generate()
	require.NoError(t, f.db.Create(&plandomain.BillingPlan{
		ID:        id,
		OrgID:     f.orgID,
		SubjectID: subjectID,
		Kind:      kind,
		Status:    plandomain.PlanStatusActive,
		StartDate: endDate.AddDate(-1, 0, 0),
		EndDate:   endDate,
	}).Error)
	return id
}

func (f *reconciliationFixture) seedPendingItem(t *testing.T, planID, subjectID snowflake.ID, dueDate time.Time) {
	t.Helper()

	require.NoError(t, f.db.Create(&plandomain.ScheduleItem{
		ID:        f.node.Generate(),
		OrgID:     f.orgID,
		PlanID:    planID,
		SubjectID: subjectID,
		Seq:       1,
		DueDate:   dueDate,
		Amount:    1000,
		Status:    plandomain.ScheduleItemStatusPending,
	}).Error)
}

func (f *reconciliationFixture) notifications(t *testing.T, eventType notificationdomain.EventType) []notificationdomain.Notification {
	t.Helper()

	var rows []notificationdomain.Notification
	require.NoError(t, f.db.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}

func TestRunPassNotifiesPlansEndingTomorrow(t *testing.T) {
	f := setupReconciliationService(t)

	subjectID := f.seedSubject(t, subjectdomain.BillingKindUsage)
	f.seedPlan(t, subjectID, plandomain.PlanKindUsage, time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC))

	// Ends well in the future, must not fire.
	otherID := f.seedSubject(t, subjectdomain.BillingKindUsage)
	f.seedPlan(t, otherID, plandomain.PlanKindUsage, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))

	result, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Expiring)
	assert.Zero(t, result.Expired)
	assert.Zero(t, result.SubjectFailures)

	rows := f.notifications(t, notificationdomain.EventExpiring)
	require.Len(t, rows, 1)
	assert.Equal(t, subjectID, rows[0].SubjectID)
}

func TestRunPassExpiresSubjectsPastPlanEnd(t *testing.T) {
	f := setupReconciliationService(t)

	subjectID := f.seedSubject(t, subjectdomain.BillingKindUsage)
	f.seedPlan(t, subjectID, plandomain.PlanKindUsage, time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC))

	result, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Expired)

	var subject subjectdomain.Subject
	require.NoError(t, f.db.First(&subject, "id = ?", subjectID).Error)
	assert.Equal(t, subjectdomain.SubjectStatusExpired, subject.Status)

	assert.Contains(t, f.cache.invalidated, f.orgID.String())
	require.Len(t, f.notifications(t, notificationdomain.EventExpired), 1)
}

func TestRunPassFollowsUpOverdueSubjectsOnce(t *testing.T) {
	f := setupReconciliationService(t)

	subjectID := f.seedSubject(t, subjectdomain.BillingKindInstallment)
	planID := f.seedPlan(t, subjectID, plandomain.PlanKindInstallment, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	f.seedPendingItem(t, planID, subjectID, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	f.seedPendingItem(t, planID, subjectID, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	result, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)

	// Two overdue items, one follow-up per subject.
	assert.Equal(t, 1, result.OverdueFollowUps)

	rows := f.notifications(t, notificationdomain.EventOverdueFollowUp)
	require.Len(t, rows, 1)
	assert.Equal(t, subjectID, rows[0].SubjectID)
	assert.Equal(t, float64(2), rows[0].Payload["overdue_items"])
}

func TestRunPassIsIdempotentWithinADay(t *testing.T) {
	f := setupReconciliationService(t)

	expiringID := f.seedSubject(t, subjectdomain.BillingKindUsage)
	f.seedPlan(t, expiringID, plandomain.PlanKindUsage, time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC))

	expiredID := f.seedSubject(t, subjectdomain.BillingKindUsage)
	f.seedPlan(t, expiredID, plandomain.PlanKindUsage, time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC))

	overdueID := f.seedSubject(t, subjectdomain.BillingKindInstallment)
	planID := f.seedPlan(t, overdueID, plandomain.PlanKindInstallment, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	f.seedPendingItem(t, planID, overdueID, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	first, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Expiring)
	assert.Equal(t, 1, first.Expired)
	assert.Equal(t, 1, first.OverdueFollowUps)

	second, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Expiring)
	assert.Zero(t, second.Expired)
	assert.Zero(t, second.OverdueFollowUps)
	assert.Zero(t, second.SubjectFailures)

	// A new day clears the dedupe window for still-open conditions only.
	f.clock.Advance(24 * time.Hour)
	third, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, third.OverdueFollowUps)
	assert.Zero(t, third.Expired)
}

func TestRunPassNotifiesExpiredSubjectOnlyOnce(t *testing.T) {
	f := setupReconciliationService(t)

	subjectID := f.seedSubject(t, subjectdomain.BillingKindUsage)
	f.seedPlan(t, subjectID, plandomain.PlanKindUsage, time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC))

	first, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Expired)
	invalidations := len(f.cache.invalidated)

	// The plan row stays ACTIVE as the historical record, so later passes
	// keep seeing it. The subject must not be re-notified.
	for day := 0; day < 2; day++ {
		f.clock.Advance(24 * time.Hour)
		result, err := f.svc.RunPass(context.Background())
		require.NoError(t, err)
		assert.Zero(t, result.Expired)
		assert.Zero(t, result.SubjectFailures)
	}

	assert.Len(t, f.notifications(t, notificationdomain.EventExpired), 1)
	assert.Len(t, f.cache.invalidated, invalidations)
}

func TestRunPassRejectsConcurrentPass(t *testing.T) {
	f := setupReconciliationService(t)

	f.svc.running.Store(true)
	_, err := f.svc.RunPass(context.Background())
	assert.ErrorIs(t, err, reconciliationdomain.ErrPassAlreadyRunning)

	f.svc.running.Store(false)
	_, err = f.svc.RunPass(context.Background())
	require.NoError(t, err)
}
