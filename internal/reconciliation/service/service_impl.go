package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/classbill/classbill/internal/clock"
	notificationdomain "github.com/classbill/classbill/internal/notification/domain"
	"github.com/classbill/classbill/internal/observability/metrics"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	reconciliationdomain "github.com/classbill/classbill/internal/reconciliation/domain"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	repo        reconciliationdomain.Repository
	subjectRepo subjectdomain.Repository
	sink        notificationdomain.Sink
	cache       snapshotdomain.Cache
	metrics     *metrics.ReconciliationMetrics

	running atomic.Bool
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        reconciliationdomain.Repository
	SubjectRepo subjectdomain.Repository
	Sink        notificationdomain.Sink
	Cache       snapshotdomain.Cache
	Metrics     *metrics.ReconciliationMetrics
}

func NewService(p ServiceParam) reconciliationdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("reconciliation.service"),

		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		subjectRepo: p.SubjectRepo,
		sink:        p.Sink,
		cache:       p.Cache,
		metrics:     p.Metrics,
	}
}

func (s *Service) RunPass(ctx context.Context) (reconciliationdomain.PassResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return reconciliationdomain.PassResult{}, reconciliationdomain.ErrPassAlreadyRunning
	}
	defer s.running.Store(false)

	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	result := reconciliationdomain.PassResult{StartedAt: now}

	s.metrics.Passes.Inc()
	defer func(start time.Time) {
		s.metrics.PassDuration.Observe(time.Since(start).Seconds())
	}(time.Now())

	if err := s.notifyExpiring(ctx, today, &result); err != nil {
		s.metrics.PassFailures.Inc()
		return result, err
	}
	if err := s.expireEnded(ctx, today, &result); err != nil {
		s.metrics.PassFailures.Inc()
		return result, err
	}
	if err := s.followUpOverdue(ctx, today, &result); err != nil {
		s.metrics.PassFailures.Inc()
		return result, err
	}

	result.Duration = time.Since(now).Round(time.Millisecond).String()
	s.log.Info("reconciliation pass done",
		zap.Int("expiring", result.Expiring),
		zap.Int("expired", result.Expired),
		zap.Int("overdue_follow_ups", result.OverdueFollowUps),
		zap.Int("subject_failures", result.SubjectFailures),
		zap.String("duration", result.Duration),
	)
	return result, nil
}

// notifyExpiring emits one heads-up per active usage plan ending tomorrow.
func (s *Service) notifyExpiring(ctx context.Context, today time.Time, result *reconciliationdomain.PassResult) error {
	tomorrow := today.AddDate(0, 0, 1)
	plans, err := s.repo.ListExpiringUsagePlans(ctx, s.db, tomorrow, tomorrow.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	for _, plan := range plans {
		published, err := s.publish(ctx, plan.OrgID, plan.SubjectID, notificationdomain.EventExpiring, today, datatypes.JSONMap{
			"plan_id":  plan.ID.String(),
			"end_date": plan.EndDate.Format("2006-01-02"),
		})
		if err != nil {
			s.failSubject(plan.SubjectID, "expiring notification failed", err, result)
			continue
		}
		if published {
			result.Expiring++
			s.metrics.Expiring.Inc()
		}
	}
	return nil
}

// expireEnded transitions subjects whose plan end date has passed while the
// plan is still active. Each subject is handled in its own transaction so one
// bad row cannot poison the rest of the pass.
func (s *Service) expireEnded(ctx context.Context, today time.Time, result *reconciliationdomain.PassResult) error {
	var plans []plandomain.BillingPlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		plans, err = s.repo.ListExpiredActivePlans(ctx, tx, today)
		return err
	})
	if err != nil {
		return err
	}

	for _, plan := range plans {
		transitioned := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			subject, err := s.subjectRepo.FindByIDForUpdate(ctx, tx, plan.OrgID, plan.SubjectID)
			if err != nil {
				return err
			}
			if subject == nil || subject.Status == subjectdomain.SubjectStatusExpired {
				return nil
			}
			if err := s.subjectRepo.UpdateStatus(ctx, tx, plan.OrgID, plan.SubjectID, subjectdomain.SubjectStatusExpired); err != nil {
				return err
			}
			transitioned = true
			return nil
		})
		if err != nil {
			s.failSubject(plan.SubjectID, "expire transition failed", err, result)
			continue
		}
		if !transitioned {
			// Already expired on an earlier pass; the plan row stays ACTIVE as
			// the historical record, so it keeps matching the scan.
			continue
		}
		s.cache.InvalidateOrg(plan.OrgID.String())

		published, err := s.publish(ctx, plan.OrgID, plan.SubjectID, notificationdomain.EventExpired, today, datatypes.JSONMap{
			"plan_id":  plan.ID.String(),
			"end_date": plan.EndDate.Format("2006-01-02"),
		})
		if err != nil {
			s.failSubject(plan.SubjectID, "expired notification failed", err, result)
			continue
		}
		if published {
			result.Expired++
			s.metrics.Expired.Inc()
		}
	}
	return nil
}

// followUpOverdue emits at most one follow-up per subject per day, covering
// every pending schedule item past due.
func (s *Service) followUpOverdue(ctx context.Context, today time.Time, result *reconciliationdomain.PassResult) error {
	subjects, err := s.repo.ListOverdueSubjects(ctx, s.db, today)
	if err != nil {
		return err
	}

	for _, overdue := range subjects {
		published, err := s.publish(ctx, overdue.OrgID, overdue.SubjectID, notificationdomain.EventOverdueFollowUp, today, datatypes.JSONMap{
			"overdue_items": overdue.ItemCount,
			"earliest_due":  overdue.EarliestDue.Format("2006-01-02"),
		})
		if err != nil {
			s.failSubject(overdue.SubjectID, "overdue follow-up failed", err, result)
			continue
		}
		if published {
			result.OverdueFollowUps++
			s.metrics.OverdueFollowUps.Inc()
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, orgID, subjectID snowflake.ID, eventType notificationdomain.EventType, day time.Time, payload datatypes.JSONMap) (bool, error) {
	return s.sink.Publish(ctx, &notificationdomain.Notification{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		SubjectID: subjectID,
		EventType: eventType,
		DedupeKey: notificationdomain.DedupeKey(subjectID, eventType, day),
		Payload:   payload,
	})
}

func (s *Service) failSubject(subjectID snowflake.ID, msg string, err error, result *reconciliationdomain.PassResult) {
	result.SubjectFailures++
	s.log.Warn(msg,
		zap.String("subject_id", subjectID.String()),
		zap.Error(err),
	)
}
