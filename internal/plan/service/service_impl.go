package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/classbill/classbill/internal/clock"
	"github.com/classbill/classbill/internal/orgcontext"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	paymentdomain "github.com/classbill/classbill/internal/payment/domain"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"github.com/classbill/classbill/pkg/db"
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
	repo        plandomain.Repository
	subjectRepo subjectdomain.Repository
	paymentRepo paymentdomain.Repository
	cache       snapshotdomain.Cache
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        plandomain.Repository
	SubjectRepo subjectdomain.Repository
	PaymentRepo paymentdomain.Repository
	Cache       snapshotdomain.Cache
}

func NewService(p ServiceParam) plandomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("plan.service"),

		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		subjectRepo: p.SubjectRepo,
		paymentRepo: p.PaymentRepo,
		cache:       p.Cache,
	}
}

// Create enforces the single-active-plan invariant. The duplicate check and
// the insert run in one transaction holding the subject row lock; the partial
// unique index on billing_plans is the backstop when two transactions still
// race.
func (s *Service) Create(ctx context.Context, req plandomain.CreatePlanRequest) (plandomain.CreatePlanResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return plandomain.CreatePlanResponse{}, plandomain.ErrInvalidOrganization
	}

	subjectID, err := parseID(req.SubjectID, plandomain.ErrInvalidSubject)
	if err != nil {
		return plandomain.CreatePlanResponse{}, err
	}

	kind, err := parsePlanKind(req.Kind)
	if err != nil {
		return plandomain.CreatePlanResponse{}, err
	}

	startDate, endDate, err := parseDates(req.StartDate, req.EndDate)
	if err != nil {
		return plandomain.CreatePlanResponse{}, err
	}

	now := s.clock.Now()
	plan := plandomain.BillingPlan{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		SubjectID:        subjectID,
		Kind:             kind,
		Status:           plandomain.PlanStatusActive,
		TotalAmount:      req.TotalAmount,
		InstallmentCount: req.InstallmentCount,
		HourlyRate:       req.HourlyRate,
		CommittedHours:   req.CommittedHours,
		StartDate:        startDate,
		EndDate:          endDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.Metadata != nil {
		plan.Metadata = datatypes.JSONMap(req.Metadata)
	}

	items, err := s.buildItems(&plan, req)
	if err != nil {
		return plandomain.CreatePlanResponse{}, err
	}

	if req.RegistrationFee < 0 {
		return plandomain.CreatePlanResponse{}, plandomain.ErrInvalidPlanParameters
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subject, err := s.subjectRepo.FindByIDForUpdate(ctx, tx, orgID, subjectID)
		if err != nil {
			return err
		}
		if subject == nil {
			return plandomain.ErrSubjectNotFound
		}

		active, err := s.repo.CountActiveBySubjectID(ctx, tx, orgID, subjectID)
		if err != nil {
			return err
		}
		if active > 0 {
			return plandomain.ErrDuplicateActivePlan
		}

		if err := s.repo.Insert(ctx, tx, &plan); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}

		if req.RegistrationFee > 0 {
			planID := plan.ID
			initialBill := paymentdomain.Payment{
				ID:        s.genID.Generate(),
				OrgID:     orgID,
				SubjectID: subjectID,
				PlanID:    &planID,
				Amount:    req.RegistrationFee,
				Mode:      "INITIAL_BILL",
				Category:  paymentdomain.CategoryRegistration,
				Status:    paymentdomain.PaymentStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.paymentRepo.Insert(ctx, tx, &initialBill); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return plandomain.CreatePlanResponse{}, plandomain.ErrDuplicateActivePlan
		}
		return plandomain.CreatePlanResponse{}, err
	}

	s.cache.InvalidateOrg(orgID.String())
	s.log.Info("plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("subject_id", subjectID.String()),
		zap.Int64("total_amount", plan.TotalAmount),
	)

	return toCreateResponse(&plan, items), nil
}

// Cancel refuses to discard collected money: a plan with completed payments
// cannot be cancelled. Remaining pending items are removed with the plan.
func (s *Service) Cancel(ctx context.Context, planID string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return plandomain.ErrInvalidOrganization
	}

	id, err := parseID(planID, plandomain.ErrInvalidPlan)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if plan == nil {
			return plandomain.ErrPlanNotFound
		}
		if plan.Status != plandomain.PlanStatusActive {
			return plandomain.ErrPlanNotActive
		}

		completed, err := s.paymentRepo.CountCompletedByPlan(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if completed > 0 {
			return plandomain.ErrPlanHasPayments
		}

		if err := tx.WithContext(ctx).Exec(
			`DELETE FROM schedule_items WHERE org_id = ? AND plan_id = ? AND status = ?`,
			orgID,
			id,
			plandomain.ScheduleItemStatusPending,
		).Error; err != nil {
			return err
		}

		now := s.clock.Now()
		plan.Status = plandomain.PlanStatusCancelled
		plan.CancelledAt = &now
		plan.UpdatedAt = now
		return s.repo.UpdateStatus(ctx, tx, plan)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateOrg(orgID.String())
	s.log.Info("plan cancelled", zap.String("plan_id", planID))
	return nil
}

// CheckCompletion reports whether every schedule item of the plan is paid and
// transitions the plan to COMPLETED when so.
func (s *Service) CheckCompletion(ctx context.Context, planID string) (bool, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return false, plandomain.ErrInvalidOrganization
	}

	id, err := parseID(planID, plandomain.ErrInvalidPlan)
	if err != nil {
		return false, err
	}

	var complete bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := CompleteIfPaid(ctx, tx, s.repo, orgID, id, s.clock.Now())
		if err != nil {
			return err
		}
		complete = done
		return nil
	})
	if err != nil {
		return false, err
	}

	if complete {
		s.cache.InvalidateOrg(orgID.String())
	}
	return complete, nil
}

func (s *Service) GetByID(ctx context.Context, planID string) (plandomain.BillingPlan, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return plandomain.BillingPlan{}, plandomain.ErrInvalidOrganization
	}

	id, err := parseID(planID, plandomain.ErrInvalidPlan)
	if err != nil {
		return plandomain.BillingPlan{}, err
	}

	plan, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return plandomain.BillingPlan{}, err
	}
	if plan == nil {
		return plandomain.BillingPlan{}, plandomain.ErrPlanNotFound
	}
	return *plan, nil
}

// CompleteIfPaid transitions a plan to COMPLETED inside the caller's
// transaction once no pending schedule items remain. The payment ledger calls
// it after every plan-linked payment so the completion check shares the
// serialization point with the payment write.
func CompleteIfPaid(ctx context.Context, tx *gorm.DB, repo plandomain.Repository, orgID, planID snowflake.ID, now time.Time) (bool, error) {
	plan, err := repo.FindByIDForUpdate(ctx, tx, orgID, planID)
	if err != nil {
		return false, err
	}
	if plan == nil {
		return false, plandomain.ErrPlanNotFound
	}
	if plan.Status == plandomain.PlanStatusCompleted {
		return true, nil
	}
	if plan.Status != plandomain.PlanStatusActive || plan.Kind != plandomain.PlanKindInstallment {
		return false, nil
	}

	pending, err := repo.CountPendingItems(ctx, tx, orgID, planID)
	if err != nil {
		return false, err
	}
	if pending > 0 {
		return false, nil
	}

	plan.Status = plandomain.PlanStatusCompleted
	plan.CompletedAt = &now
	plan.UpdatedAt = now
	if err := repo.UpdateStatus(ctx, tx, plan); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) buildItems(plan *plandomain.BillingPlan, req plandomain.CreatePlanRequest) ([]plandomain.ScheduleItem, error) {
	if plan.Kind == plandomain.PlanKindUsage {
		// Usage plans are billed retrospectively from attendance; they carry
		// no installment schedule.
		if plan.HourlyRate != nil && *plan.HourlyRate <= 0 {
			return nil, plandomain.ErrInvalidPlanParameters
		}
		if !plan.EndDate.After(plan.StartDate) {
			return nil, plandomain.ErrInvalidPlanParameters
		}
		return nil, nil
	}

	lines, err := plandomain.BuildSchedule(plandomain.ScheduleParams{
		TotalAmount:      req.TotalAmount,
		InstallmentCount: req.InstallmentCount,
		StartDate:        plan.StartDate,
		EndDate:          plan.EndDate,
	})
	if err != nil {
		return nil, err
	}

	now := plan.CreatedAt
	items := make([]plandomain.ScheduleItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, plandomain.ScheduleItem{
			ID:        s.genID.Generate(),
			OrgID:     plan.OrgID,
			PlanID:    plan.ID,
			SubjectID: plan.SubjectID,
			Seq:       line.Seq,
			DueDate:   line.DueDate,
			Amount:    line.Amount,
			Status:    plandomain.ScheduleItemStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return items, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func parsePlanKind(value string) (plandomain.PlanKind, error) {
	kind := plandomain.PlanKind(strings.ToUpper(strings.TrimSpace(value)))
	switch kind {
	case plandomain.PlanKindInstallment, plandomain.PlanKindUsage:
		return kind, nil
	case "":
		return plandomain.PlanKindInstallment, nil
	default:
		return "", plandomain.ErrInvalidPlanKind
	}
}

func parseDates(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(start), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, plandomain.ErrInvalidPlanParameters
	}
	endDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(end), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, plandomain.ErrInvalidPlanParameters
	}
	if !endDate.After(startDate) {
		return time.Time{}, time.Time{}, plandomain.ErrInvalidPlanParameters
	}
	return startDate, endDate, nil
}

func toCreateResponse(plan *plandomain.BillingPlan, items []plandomain.ScheduleItem) plandomain.CreatePlanResponse {
	respItems := make([]plandomain.ScheduleItemResponse, 0, len(items))
	for _, item := range items {
		respItems = append(respItems, plandomain.ScheduleItemResponse{
			ID:      item.ID.String(),
			Seq:     item.Seq,
			DueDate: item.DueDate,
			Amount:  item.Amount,
			Status:  item.Status,
		})
	}

	return plandomain.CreatePlanResponse{
		ID:          plan.ID.String(),
		SubjectID:   plan.SubjectID.String(),
		Kind:        plan.Kind,
		Status:      plan.Status,
		TotalAmount: plan.TotalAmount,
		StartDate:   plan.StartDate,
		EndDate:     plan.EndDate,
		Items:       respItems,
	}
}
