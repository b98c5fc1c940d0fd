package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrPassAlreadyRunning = errors.New("reconciliation_pass_already_running")

// PassResult summarizes one reconciliation pass. Counters reflect
// notifications actually published; replays on the same day report zeros.
type PassResult struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`

	Expiring         int `json:"expiring"`
	Expired          int `json:"expired"`
	OverdueFollowUps int `json:"overdue_follow_ups"`
	SubjectFailures  int `json:"subject_failures"`
}

// OverdueSubject is one subject with at least one pending schedule item past
// its due date.
type OverdueSubject struct {
	OrgID       snowflake.ID
	SubjectID   snowflake.ID
	ItemCount   int64
	EarliestDue time.Time
}

type Service interface {
	// RunPass walks all organizations. A failure on one subject is logged
	// and counted without aborting the rest of the pass.
	RunPass(ctx context.Context) (PassResult, error)
}
