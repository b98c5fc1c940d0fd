// Package domain contains the derived per-subject financial snapshot and the
// pure aggregation that produces it.
package domain

import (
	"context"
	"errors"
	"time"
)

// PaymentState is the derived billing status of a subject.
type PaymentState string

const (
	StateNotPaid       PaymentState = "NOT_PAID"
	StateFullyPaid     PaymentState = "FULLY_PAID"
	StateOverdue       PaymentState = "OVERDUE"
	StatePartiallyPaid PaymentState = "PARTIALLY_PAID"
	StatePending       PaymentState = "PENDING"
)

// FinancialSnapshot is a derived, point-in-time summary of a subject's billing
// state. It is recomputed on read and never persisted.
type FinancialSnapshot struct {
	SubjectID           string       `json:"subject_id"`
	Expected            int64        `json:"expected"`
	CollectedTuition    int64        `json:"collected_tuition"`
	CollectedAdditional int64        `json:"collected_additional"`
	TotalDue            int64        `json:"total_due"`
	Status              PaymentState `json:"status"`
	NextDueDate         *time.Time   `json:"next_due_date,omitempty"`
	OverdueCount        int          `json:"overdue_count"`
	ComputedAt          time.Time    `json:"computed_at"`
}

type Service interface {
	GetFinancialSnapshot(ctx context.Context, subjectID string) (FinancialSnapshot, error)
}

// Cache keeps recent snapshots per organization. Write paths invalidate the
// whole organization; staleness inside the TTL is an accepted reporting
// trade-off.
type Cache interface {
	Get(orgID, subjectID string) (FinancialSnapshot, bool)
	Set(orgID, subjectID string, snapshot FinancialSnapshot)
	InvalidateOrg(orgID string)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidSubject      = errors.New("invalid_subject")
	ErrSubjectNotFound     = errors.New("subject_not_found")
)
