package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/classbill/classbill/pkg/db/pagination"
)

type CreateSubjectRequest struct {
	Name         string         `json:"name"`
	ProgramClass string         `json:"program_class"`
	BillingKind  string         `json:"billing_kind"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type SubjectResponse struct {
	ID           string        `json:"id"`
	OrgID        string        `json:"org_id"`
	Name         string        `json:"name"`
	ProgramClass string        `json:"program_class"`
	BillingKind  BillingKind   `json:"billing_kind"`
	Status       SubjectStatus `json:"status"`
}

type ListSubjectsRequest struct {
	pagination.Pagination
	Status       string `form:"status"`
	BillingKind  string `form:"billing_kind"`
	ProgramClass string `form:"program_class"`
	SortBy       string `form:"sort_by"`
	OrderBy      string `form:"order_by"`
}

type ListSubjectsResponse struct {
	Subjects []Subject            `json:"subjects"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type Service interface {
	Create(ctx context.Context, req CreateSubjectRequest) (SubjectResponse, error)
	GetByID(ctx context.Context, id string) (Subject, error)
	List(ctx context.Context, req ListSubjectsRequest) (ListSubjectsResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidSubject      = errors.New("invalid_subject")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidProgramClass = errors.New("invalid_program_class")
	ErrInvalidBillingKind  = errors.New("invalid_billing_kind")
	ErrSubjectNotFound     = errors.New("subject_not_found")
)

// ActiveObligationsError blocks subject deletion while financial obligations
// remain open. It carries machine-readable counts so callers can present a
// specific remediation.
type ActiveObligationsError struct {
	ActivePlans  int64 `json:"active_plans"`
	PendingItems int64 `json:"pending_items"`
}

func (e *ActiveObligationsError) Error() string {
	return fmt.Sprintf("active_financial_obligations: %d active plans, %d pending items", e.ActivePlans, e.PendingItems)
}
