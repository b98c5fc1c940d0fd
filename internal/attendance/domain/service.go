package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidOrganization     = errors.New("invalid_organization")
	ErrInvalidSubject          = errors.New("invalid_subject")
	ErrInvalidEvent            = errors.New("invalid_attendance_event")
	ErrEventNotFound           = errors.New("attendance_event_not_found")
	ErrAlreadyCheckedOut       = errors.New("attendance_already_checked_out")
	ErrOpenAttendanceExists    = errors.New("open_attendance_exists")
	ErrInvalidAttendanceWindow = errors.New("invalid_attendance_window")
	ErrInvalidPeriod           = errors.New("invalid_period")
	ErrNotUsageBilled          = errors.New("subject_not_usage_billed")
)

type CheckInRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`

	// At overrides the event timestamp, e.g. for backfilled imports.
	// RFC 3339; empty means now.
	At string `json:"at"`
}

type CheckOutRequest struct {
	EventID string `json:"event_id" binding:"required"`
	At      string `json:"at"`
}

type EventResponse struct {
	ID              string     `json:"id"`
	SubjectID       string     `json:"subject_id"`
	CheckInAt       time.Time  `json:"check_in_at"`
	CheckOutAt      *time.Time `json:"check_out_at,omitempty"`
	DurationMinutes *int64     `json:"duration_minutes,omitempty"`
}

// UsageCharge is the metered bill for one subject over one reporting month.
type UsageCharge struct {
	SubjectID      string `json:"subject_id"`
	Period         string `json:"period"`
	TotalMinutes   int64  `json:"total_minutes"`
	HourlyRate     int64  `json:"hourly_rate"`
	Amount         int64  `json:"amount"`
	EventCount     int    `json:"event_count"`
	OpenEventCount int    `json:"open_event_count"`
}

type Service interface {
	CheckIn(ctx context.Context, req CheckInRequest) (EventResponse, error)
	CheckOut(ctx context.Context, req CheckOutRequest) (EventResponse, error)

	// ComputeUsageCharge prices the subject's attendance for a reporting
	// month. Period is "YYYY-MM". Open events are excluded from the charge.
	ComputeUsageCharge(ctx context.Context, subjectID, period string) (UsageCharge, error)
}
