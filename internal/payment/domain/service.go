package domain

import (
	"context"
	"errors"
	"time"
)

type RecordPaymentRequest struct {
	SubjectID      string `json:"subject_id"`
	Amount         int64  `json:"amount"`
	Discount       int64  `json:"discount,omitempty"`
	Mode           string `json:"mode"`
	Category       string `json:"category"`
	ScheduleItemID string `json:"schedule_item_id,omitempty"`
	TransactionID  string `json:"transaction_id,omitempty"`
}

type PaymentResponse struct {
	ID             string          `json:"id"`
	SubjectID      string          `json:"subject_id"`
	PlanID         *string         `json:"plan_id,omitempty"`
	ScheduleItemID *string         `json:"schedule_item_id,omitempty"`
	Amount         int64           `json:"amount"`
	Discount       int64           `json:"discount"`
	Mode           string          `json:"mode"`
	Category       PaymentCategory `json:"category"`
	Status         PaymentStatus   `json:"status"`
	ReceiptNo      *string         `json:"receipt_no,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`

	// PlanCompleted reports whether this payment settled the last pending
	// schedule item of its plan.
	PlanCompleted bool `json:"plan_completed"`
}

type BackfillResult struct {
	Scanned int `json:"scanned"`
	Issued  int `json:"issued"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (PaymentResponse, error)
	Complete(ctx context.Context, paymentID string) error
	IssueReceipt(ctx context.Context, paymentID string) (string, error)
	BackfillMissingReceipts(ctx context.Context) (BackfillResult, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidSubject       = errors.New("invalid_subject")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidMode          = errors.New("invalid_mode")
	ErrInvalidCategory      = errors.New("invalid_category")
	ErrInvalidPayment       = errors.New("invalid_payment")
	ErrInvalidScheduleItem  = errors.New("invalid_schedule_item")
	ErrPaymentNotFound      = errors.New("payment_not_found")
	ErrScheduleItemNotFound = errors.New("schedule_item_not_found")
	ErrScheduleItemSettled  = errors.New("schedule_item_already_settled")

	// ErrPartialSettlement rejects payments that do not cover a schedule item
	// exactly. Partial coverage must be recorded as an unscheduled
	// additional-charge payment instead.
	ErrPartialSettlement = errors.New("partial_settlement_not_allowed")
)
