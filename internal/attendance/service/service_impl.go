package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	attendancedomain "github.com/classbill/classbill/internal/attendance/domain"
	"github.com/classbill/classbill/internal/clock"
	"github.com/classbill/classbill/internal/orgcontext"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config carries the organization-wide fallback rate for usage plans that do
// not set a custom one.
type Config struct {
	DefaultHourlyRate int64
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	cfg Config

	genID       *snowflake.Node
	clock       clock.Clock
	repo        attendancedomain.Repository
	subjectRepo subjectdomain.Repository
	planRepo    plandomain.Repository
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      Config
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        attendancedomain.Repository
	SubjectRepo subjectdomain.Repository
	PlanRepo    plandomain.Repository
}

func NewService(p ServiceParam) attendancedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("attendance.service"),
		cfg: p.Config,

		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		subjectRepo: p.SubjectRepo,
		planRepo:    p.PlanRepo,
	}
}

func (s *Service) CheckIn(ctx context.Context, req attendancedomain.CheckInRequest) (attendancedomain.EventResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return attendancedomain.EventResponse{}, attendancedomain.ErrInvalidOrganization
	}

	subjectID, err := snowflake.ParseString(strings.TrimSpace(req.SubjectID))
	if err != nil || subjectID == 0 {
		return attendancedomain.EventResponse{}, attendancedomain.ErrInvalidSubject
	}

	at, err := s.parseAt(req.At)
	if err != nil {
		return attendancedomain.EventResponse{}, err
	}

	event := attendancedomain.AttendanceEvent{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		SubjectID: subjectID,
		CheckInAt: at,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subject, err := s.subjectRepo.FindByIDForUpdate(ctx, tx, orgID, subjectID)
		if err != nil {
			return err
		}
		if subject == nil {
			return attendancedomain.ErrInvalidSubject
		}
		if subject.BillingKind != subjectdomain.BillingKindUsage {
			return attendancedomain.ErrNotUsageBilled
		}

		open, err := s.repo.FindOpenBySubjectID(ctx, tx, orgID, subjectID)
		if err != nil {
			return err
		}
		if open != nil {
			return attendancedomain.ErrOpenAttendanceExists
		}

		return s.repo.Insert(ctx, tx, &event)
	})
	if err != nil {
		return attendancedomain.EventResponse{}, err
	}

	s.log.Info("checked in",
		zap.String("subject_id", subjectID.String()),
		zap.String("event_id", event.ID.String()),
	)
	return toEventResponse(event), nil
}

// CheckOut closes the event and derives its duration. A check-out earlier
// than the check-in is rejected so a charge can never go negative.
func (s *Service) CheckOut(ctx context.Context, req attendancedomain.CheckOutRequest) (attendancedomain.EventResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return attendancedomain.EventResponse{}, attendancedomain.ErrInvalidOrganization
	}

	eventID, err := snowflake.ParseString(strings.TrimSpace(req.EventID))
	if err != nil || eventID == 0 {
		return attendancedomain.EventResponse{}, attendancedomain.ErrInvalidEvent
	}

	at, err := s.parseAt(req.At)
	if err != nil {
		return attendancedomain.EventResponse{}, err
	}

	var event attendancedomain.AttendanceEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, eventID)
		if err != nil {
			return err
		}
		if found == nil {
			return attendancedomain.ErrEventNotFound
		}
		if found.CheckOutAt != nil {
			return attendancedomain.ErrAlreadyCheckedOut
		}
		if at.Before(found.CheckInAt) {
			return attendancedomain.ErrInvalidAttendanceWindow
		}

		minutes := int64(at.Sub(found.CheckInAt) / time.Minute)
		if err := s.repo.Complete(ctx, tx, orgID, eventID, at, minutes); err != nil {
			return err
		}

		event = *found
		event.CheckOutAt = &at
		event.DurationMinutes = &minutes
		return nil
	})
	if err != nil {
		return attendancedomain.EventResponse{}, err
	}

	s.log.Info("checked out",
		zap.String("subject_id", event.SubjectID.String()),
		zap.String("event_id", event.ID.String()),
		zap.Int64p("duration_minutes", event.DurationMinutes),
	)
	return toEventResponse(event), nil
}

func (s *Service) ComputeUsageCharge(ctx context.Context, subjectID, period string) (attendancedomain.UsageCharge, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return attendancedomain.UsageCharge{}, attendancedomain.ErrInvalidOrganization
	}

	id, err := snowflake.ParseString(strings.TrimSpace(subjectID))
	if err != nil || id == 0 {
		return attendancedomain.UsageCharge{}, attendancedomain.ErrInvalidSubject
	}

	from, to, err := parsePeriod(period)
	if err != nil {
		return attendancedomain.UsageCharge{}, err
	}

	subject, err := s.subjectRepo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return attendancedomain.UsageCharge{}, err
	}
	if subject == nil {
		return attendancedomain.UsageCharge{}, attendancedomain.ErrInvalidSubject
	}
	if subject.BillingKind != subjectdomain.BillingKindUsage {
		return attendancedomain.UsageCharge{}, attendancedomain.ErrNotUsageBilled
	}

	rate := s.cfg.DefaultHourlyRate
	plan, err := s.planRepo.FindActiveBySubjectID(ctx, s.db, orgID, id)
	if err != nil {
		return attendancedomain.UsageCharge{}, err
	}
	if plan != nil && plan.HourlyRate != nil && *plan.HourlyRate > 0 {
		rate = *plan.HourlyRate
	}

	events, err := s.repo.ListClosedInWindow(ctx, s.db, orgID, id, from, to)
	if err != nil {
		return attendancedomain.UsageCharge{}, err
	}
	openCount, err := s.repo.CountOpenInWindow(ctx, s.db, orgID, id, from, to)
	if err != nil {
		return attendancedomain.UsageCharge{}, err
	}

	var totalMinutes int64
	for _, event := range events {
		if event.DurationMinutes != nil {
			totalMinutes += *event.DurationMinutes
		}
	}

	return attendancedomain.UsageCharge{
		SubjectID:      id.String(),
		Period:         period,
		TotalMinutes:   totalMinutes,
		HourlyRate:     rate,
		Amount:         totalMinutes * rate / 60,
		EventCount:     len(events),
		OpenEventCount: int(openCount),
	}, nil
}

func (s *Service) parseAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.clock.Now(), nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, attendancedomain.ErrInvalidAttendanceWindow
	}
	return at.UTC(), nil
}

func parsePeriod(period string) (from, to time.Time, err error) {
	from, err = time.Parse("2006-01", strings.TrimSpace(period))
	if err != nil {
		return time.Time{}, time.Time{}, attendancedomain.ErrInvalidPeriod
	}
	return from, from.AddDate(0, 1, 0), nil
}

func toEventResponse(event attendancedomain.AttendanceEvent) attendancedomain.EventResponse {
	return attendancedomain.EventResponse{
		ID:              event.ID.String(),
		SubjectID:       event.SubjectID.String(),
		CheckInAt:       event.CheckInAt,
		CheckOutAt:      event.CheckOutAt,
		DurationMinutes: event.DurationMinutes,
	}
}
