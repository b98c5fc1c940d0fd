package domain

import (
	"context"
	"errors"
	"time"
)

type CreatePlanRequest struct {
	SubjectID        string `json:"subject_id"`
	Kind             string `json:"kind"`
	TotalAmount      int64  `json:"total_amount"`
	InstallmentCount int    `json:"installment_count"`
	HourlyRate       *int64 `json:"hourly_rate,omitempty"`
	CommittedHours   *int64 `json:"committed_hours,omitempty"`
	StartDate        string `json:"start_date"` // YYYY-MM-DD
	EndDate          string `json:"end_date"`   // YYYY-MM-DD

	// RegistrationFee, when set, creates an immediate pending payment as the
	// initial bill.
	RegistrationFee int64 `json:"registration_fee,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

type ScheduleItemResponse struct {
	ID      string             `json:"id"`
	Seq     int                `json:"seq"`
	DueDate time.Time          `json:"due_date"`
	Amount  int64              `json:"amount"`
	Status  ScheduleItemStatus `json:"status"`
}

type CreatePlanResponse struct {
	ID          string                 `json:"id"`
	SubjectID   string                 `json:"subject_id"`
	Kind        PlanKind               `json:"kind"`
	Status      PlanStatus             `json:"status"`
	TotalAmount int64                  `json:"total_amount"`
	StartDate   time.Time              `json:"start_date"`
	EndDate     time.Time              `json:"end_date"`
	Items       []ScheduleItemResponse `json:"items"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (CreatePlanResponse, error)
	Cancel(ctx context.Context, planID string) error
	CheckCompletion(ctx context.Context, planID string) (bool, error)
	GetByID(ctx context.Context, planID string) (BillingPlan, error)
}

var (
	ErrInvalidOrganization   = errors.New("invalid_organization")
	ErrInvalidSubject        = errors.New("invalid_subject")
	ErrInvalidPlan           = errors.New("invalid_plan")
	ErrInvalidPlanKind       = errors.New("invalid_plan_kind")
	ErrInvalidPlanParameters = errors.New("invalid_plan_parameters")
	ErrDuplicateActivePlan   = errors.New("duplicate_active_plan")
	ErrPlanHasPayments       = errors.New("plan_has_payments")
	ErrPlanNotFound          = errors.New("plan_not_found")
	ErrSubjectNotFound       = errors.New("subject_not_found")
	ErrPlanNotActive         = errors.New("plan_not_active")
)
