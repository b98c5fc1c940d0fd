package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/classbill/classbill/internal/clock"
	"github.com/classbill/classbill/internal/orgcontext"
	paymentdomain "github.com/classbill/classbill/internal/payment/domain"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	planservice "github.com/classbill/classbill/internal/plan/service"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config carries ledger settings sourced from app configuration.
type Config struct {
	ReceiptPrefix string
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	cfg Config

	genID    *snowflake.Node
	clock    clock.Clock
	repo     paymentdomain.Repository
	planRepo plandomain.Repository
	cache    snapshotdomain.Cache
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     paymentdomain.Repository
	PlanRepo plandomain.Repository
	Cache    snapshotdomain.Cache
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("payment.service"),
		cfg: p.Config,

		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		planRepo: p.PlanRepo,
		cache:    p.Cache,
	}
}

// Record creates an immutable payment. A linked schedule item must be covered
// exactly; settling the item and re-checking plan completion happen in the
// same transaction as the payment insert.
func (s *Service) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.PaymentResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return paymentdomain.PaymentResponse{}, paymentdomain.ErrInvalidOrganization
	}

	subjectID, err := parseID(req.SubjectID, paymentdomain.ErrInvalidSubject)
	if err != nil {
		return paymentdomain.PaymentResponse{}, err
	}

	if req.Amount <= 0 || req.Discount < 0 {
		return paymentdomain.PaymentResponse{}, paymentdomain.ErrInvalidAmount
	}

	mode := strings.ToUpper(strings.TrimSpace(req.Mode))
	if mode == "" {
		return paymentdomain.PaymentResponse{}, paymentdomain.ErrInvalidMode
	}

	category, err := parseCategory(req.Category)
	if err != nil {
		return paymentdomain.PaymentResponse{}, err
	}

	var scheduleItemID *snowflake.ID
	if strings.TrimSpace(req.ScheduleItemID) != "" {
		id, err := parseID(req.ScheduleItemID, paymentdomain.ErrInvalidScheduleItem)
		if err != nil {
			return paymentdomain.PaymentResponse{}, err
		}
		scheduleItemID = &id
	}

	now := s.clock.Now()
	payment := paymentdomain.Payment{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		SubjectID: subjectID,
		Amount:    req.Amount,
		Discount:  req.Discount,
		Mode:      mode,
		Category:  category,
		Status:    paymentdomain.PaymentStatusCompleted,
		PaidAt:    &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if txID := strings.TrimSpace(req.TransactionID); txID != "" {
		payment.TransactionID = &txID
	}

	planCompleted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if scheduleItemID != nil {
			item, err := s.planRepo.FindItemForUpdate(ctx, tx, orgID, *scheduleItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return paymentdomain.ErrScheduleItemNotFound
			}
			if item.SubjectID != subjectID {
				return paymentdomain.ErrInvalidScheduleItem
			}
			if item.Status != plandomain.ScheduleItemStatusPending {
				return paymentdomain.ErrScheduleItemSettled
			}
			if req.Amount != item.Amount {
				return paymentdomain.ErrPartialSettlement
			}

			if err := s.planRepo.MarkItemPaid(ctx, tx, orgID, item.ID); err != nil {
				return err
			}

			planID := item.PlanID
			payment.PlanID = &planID
			payment.ScheduleItemID = scheduleItemID

			if err := s.repo.Insert(ctx, tx, &payment); err != nil {
				return err
			}

			done, err := planservice.CompleteIfPaid(ctx, tx, s.planRepo, orgID, planID, now)
			if err != nil {
				return err
			}
			planCompleted = done
			return nil
		}

		return s.repo.Insert(ctx, tx, &payment)
	})
	if err != nil {
		return paymentdomain.PaymentResponse{}, err
	}

	s.cache.InvalidateOrg(orgID.String())
	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("subject_id", subjectID.String()),
		zap.Int64("amount", payment.Amount),
		zap.String("category", string(category)),
		zap.Bool("plan_completed", planCompleted),
	)

	resp := toResponse(&payment)
	resp.PlanCompleted = planCompleted
	return resp, nil
}

// Complete transitions a pending payment (e.g. the registration initial bill)
// to completed.
func (s *Service) Complete(ctx context.Context, paymentID string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return paymentdomain.ErrInvalidOrganization
	}

	id, err := parseID(paymentID, paymentdomain.ErrInvalidPayment)
	if err != nil {
		return err
	}

	payment, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if payment == nil {
		return paymentdomain.ErrPaymentNotFound
	}

	if err := s.repo.MarkCompleted(ctx, s.db, orgID, id, s.clock.Now()); err != nil {
		return err
	}

	s.cache.InvalidateOrg(orgID.String())
	return nil
}

// IssueReceipt is idempotent: the number is a pure function of the persisted
// payment id, and the write lands only when no number is set yet. Concurrent
// retries observe the same value.
func (s *Service) IssueReceipt(ctx context.Context, paymentID string) (string, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return "", paymentdomain.ErrInvalidOrganization
	}

	id, err := parseID(paymentID, paymentdomain.ErrInvalidPayment)
	if err != nil {
		return "", err
	}

	payment, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return "", err
	}
	if payment == nil {
		return "", paymentdomain.ErrPaymentNotFound
	}
	if payment.ReceiptNo != nil {
		return *payment.ReceiptNo, nil
	}

	receiptNo := paymentdomain.ReceiptNumber(s.cfg.ReceiptPrefix, receiptDate(payment), payment.ID)
	won, err := s.repo.PersistReceiptIfAbsent(ctx, s.db, orgID, id, receiptNo)
	if err != nil {
		return "", err
	}
	if !won {
		// A rival write landed first; the derivation is deterministic so the
		// stored value matches what we computed.
		persisted, err := s.repo.FindByID(ctx, s.db, orgID, id)
		if err != nil {
			return "", err
		}
		if persisted != nil && persisted.ReceiptNo != nil {
			return *persisted.ReceiptNo, nil
		}
	}
	return receiptNo, nil
}

// BackfillMissingReceipts repairs historical gaps. Receipt issuance failures
// never block the payment write path; this sweep is the recovery path.
func (s *Service) BackfillMissingReceipts(ctx context.Context) (paymentdomain.BackfillResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return paymentdomain.BackfillResult{}, paymentdomain.ErrInvalidOrganization
	}

	payments, err := s.repo.ListMissingReceipts(ctx, s.db, orgID)
	if err != nil {
		return paymentdomain.BackfillResult{}, err
	}

	result := paymentdomain.BackfillResult{Scanned: len(payments)}
	for _, payment := range payments {
		receiptNo := paymentdomain.ReceiptNumber(s.cfg.ReceiptPrefix, receiptDate(&payment), payment.ID)
		won, err := s.repo.PersistReceiptIfAbsent(ctx, s.db, orgID, payment.ID, receiptNo)
		if err != nil {
			s.log.Warn("receipt backfill failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if won {
			result.Issued++
		}
	}

	return result, nil
}

// receiptDate picks the academic-year anchor for the receipt number. A staged
// bill has no paid time yet, so its billing date stands in.
func receiptDate(payment *paymentdomain.Payment) time.Time {
	if payment.PaidAt != nil {
		return *payment.PaidAt
	}
	return payment.CreatedAt
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func parseCategory(value string) (paymentdomain.PaymentCategory, error) {
	category := paymentdomain.PaymentCategory(strings.ToUpper(strings.TrimSpace(value)))
	switch category {
	case paymentdomain.CategoryTuition,
		paymentdomain.CategoryRegistration,
		paymentdomain.CategoryUsageCharge,
		paymentdomain.CategoryAdditionalCharge:
		return category, nil
	default:
		return "", paymentdomain.ErrInvalidCategory
	}
}

func toResponse(payment *paymentdomain.Payment) paymentdomain.PaymentResponse {
	resp := paymentdomain.PaymentResponse{
		ID:        payment.ID.String(),
		SubjectID: payment.SubjectID.String(),
		Amount:    payment.Amount,
		Discount:  payment.Discount,
		Mode:      payment.Mode,
		Category:  payment.Category,
		Status:    payment.Status,
		ReceiptNo: payment.ReceiptNo,
		PaidAt:    payment.PaidAt,
	}
	if payment.PlanID != nil {
		value := payment.PlanID.String()
		resp.PlanID = &value
	}
	if payment.ScheduleItemID != nil {
		value := payment.ScheduleItemID.String()
		resp.ScheduleItemID = &value
	}
	return resp
}
