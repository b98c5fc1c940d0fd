package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	attendancedomain "github.com/classbill/classbill/internal/attendance/domain"
	attendancerepository "github.com/classbill/classbill/internal/attendance/repository"
	"github.com/classbill/classbill/internal/clock"
	"github.com/classbill/classbill/internal/orgcontext"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	planrepository "github.com/classbill/classbill/internal/plan/repository"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	subjectrepository "github.com/classbill/classbill/internal/subject/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type attendanceFixture struct {
	svc       attendancedomain.Service
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	orgID     snowflake.ID
	subjectID snowflake.ID
}

func setupAttendanceService(t *testing.T) *attendanceFixture {
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
		&attendancedomain.AttendanceEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC))

	orgID := node.Generate()
	subjectID := node.Generate()
	require.NoError(t, db.Create(&subjectdomain.Subject{
		ID:           subjectID,
		OrgID:        orgID,
		Name:         "Dewi",
		ProgramClass: "daycare-2",
		BillingKind:  subjectdomain.BillingKindUsage,
		Status:       subjectdomain.SubjectStatusActive,
		CreatedAt:    fakeClock.Now(),
		UpdatedAt:    fakeClock.Now(),
	}).Error)

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		Config:      Config{DefaultHourlyRate: 100},
		GenID:       node,
		Clock:       fakeClock,
		Repo:        attendancerepository.Provide(),
		SubjectRepo: subjectrepository.Provide(),
		PlanRepo:    planrepository.Provide(),
	})

	return &attendanceFixture{
		svc:       svc,
		db:        db,
		node:      node,
		clock:     fakeClock,
		orgID:     orgID,
		subjectID: subjectID,
	}
}

func (f *attendanceFixture) ctx() context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(f.orgID))
}

func (f *attendanceFixture) attend(t *testing.T, checkIn, checkOut time.Time) {
	t.Helper()

	event, err := f.svc.CheckIn(f.ctx(), attendancedomain.CheckInRequest{
		SubjectID: f.subjectID.String(),
		At:        checkIn.Format(time.RFC3339),
	})
	require.NoError(t, err)

	_, err = f.svc.CheckOut(f.ctx(), attendancedomain.CheckOutRequest{
		EventID: event.ID,
		At:      checkOut.Format(time.RFC3339),
	})
	require.NoError(t, err)
}

func TestCheckOutBeforeCheckInFails(t *testing.T) {
	f := setupAttendanceService(t)

	event, err := f.svc.CheckIn(f.ctx(), attendancedomain.CheckInRequest{
		SubjectID: f.subjectID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.CheckOut(f.ctx(), attendancedomain.CheckOutRequest{
		EventID: event.ID,
		At:      f.clock.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	assert.ErrorIs(t, err, attendancedomain.ErrInvalidAttendanceWindow)

	// The event stays open for a later valid check-out.
	resp, err := f.svc.CheckOut(f.ctx(), attendancedomain.CheckOutRequest{
		EventID: event.ID,
		At:      f.clock.Now().Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.DurationMinutes)
	assert.Equal(t, int64(120), *resp.DurationMinutes)
}

func TestCheckInRejectsSecondOpenEvent(t *testing.T) {
	f := setupAttendanceService(t)

	_, err := f.svc.CheckIn(f.ctx(), attendancedomain.CheckInRequest{SubjectID: f.subjectID.String()})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(f.ctx(), attendancedomain.CheckInRequest{SubjectID: f.subjectID.String()})
	assert.ErrorIs(t, err, attendancedomain.ErrOpenAttendanceExists)
}

func TestCheckInRejectsInstallmentSubject(t *testing.T) {
	f := setupAttendanceService(t)

	installmentID := f.node.Generate()
	require.NoError(t, f.db.Create(&subjectdomain.Subject{
		ID:           installmentID,
		OrgID:        f.orgID,
		Name:         "Eka",
		ProgramClass: "kindergarten-a",
		BillingKind:  subjectdomain.BillingKindInstallment,
		Status:       subjectdomain.SubjectStatusActive,
	}).Error)

	_, err := f.svc.CheckIn(f.ctx(), attendancedomain.CheckInRequest{SubjectID: installmentID.String()})
	assert.ErrorIs(t, err, attendancedomain.ErrNotUsageBilled)
}

func TestCheckOutTwiceFails(t *testing.T) {
	f := setupAttendanceService(t)

	event, err := f.svc.CheckIn(f.ctx(), attendancedomain.CheckInRequest{SubjectID: f.subjectID.String()})
	require.NoError(t, err)

	out := f.clock.Now().Add(time.Hour).Format(time.RFC3339)
	_, err = f.svc.CheckOut(f.ctx(), attendancedomain.CheckOutRequest{EventID: event.ID, At: out})
	require.NoError(t, err)

	_, err = f.svc.CheckOut(f.ctx(), attendancedomain.CheckOutRequest{EventID: event.ID, At: out})
	assert.ErrorIs(t, err, attendancedomain.ErrAlreadyCheckedOut)
}

func TestComputeUsageChargeForMonth(t *testing.T) {
	f := setupAttendanceService(t)

	// 3h and 2h at the default rate of 100 per hour.
	f.attend(t,
		time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 2, 11, 0, 0, 0, time.UTC),
	)
	f.attend(t,
		time.Date(2025, 9, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC),
	)
	// Outside the reporting month, must not count.
	f.attend(t,
		time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
	)

	charge, err := f.svc.ComputeUsageCharge(f.ctx(), f.subjectID.String(), "2025-09")
	require.NoError(t, err)

	assert.Equal(t, int64(300), charge.TotalMinutes)
	assert.Equal(t, int64(100), charge.HourlyRate)
	assert.Equal(t, int64(500), charge.Amount)
	assert.Equal(t, 2, charge.EventCount)
	assert.Zero(t, charge.OpenEventCount)
}

func TestComputeUsageChargePrefersPlanRate(t *testing.T) {
	f := setupAttendanceService(t)

	rate := int64(250)
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Create(&plandomain.BillingPlan{
		ID:         f.node.Generate(),
		OrgID:      f.orgID,
		SubjectID:  f.subjectID,
		Kind:       plandomain.PlanKindUsage,
		Status:     plandomain.PlanStatusActive,
		HourlyRate: &rate,
		StartDate:  start,
		EndDate:    start.AddDate(1, 0, 0),
	}).Error)

	f.attend(t,
		time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 2, 9, 0, 0, 0, time.UTC),
	)

	charge, err := f.svc.ComputeUsageCharge(f.ctx(), f.subjectID.String(), "2025-09")
	require.NoError(t, err)
	assert.Equal(t, int64(250), charge.HourlyRate)
	assert.Equal(t, int64(250), charge.Amount)
}

func TestComputeUsageChargeReportsOpenEvents(t *testing.T) {
	f := setupAttendanceService(t)

	_, err := f.svc.CheckIn(f.ctx(), attendancedomain.CheckInRequest{
		SubjectID: f.subjectID.String(),
		At:        time.Date(2025, 9, 5, 8, 0, 0, 0, time.UTC).Format(time.RFC3339),
	})
	require.NoError(t, err)

	charge, err := f.svc.ComputeUsageCharge(f.ctx(), f.subjectID.String(), "2025-09")
	require.NoError(t, err)
	assert.Zero(t, charge.Amount)
	assert.Equal(t, 1, charge.OpenEventCount)
}

func TestComputeUsageChargeInvalidPeriod(t *testing.T) {
	f := setupAttendanceService(t)

	_, err := f.svc.ComputeUsageCharge(f.ctx(), f.subjectID.String(), "september")
	assert.ErrorIs(t, err, attendancedomain.ErrInvalidPeriod)
}
