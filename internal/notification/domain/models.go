package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EventType string

const (
	EventExpiring        EventType = "ENROLLMENT_EXPIRING"
	EventExpired         EventType = "ENROLLMENT_EXPIRED"
	EventOverdueFollowUp EventType = "OVERDUE_FOLLOW_UP"
)

// Notification is an outbound event staged for delivery. DedupeKey is
// "{subjectID}|{eventType}|{date}" and carries a unique index, so replays of
// the same pass on the same day collapse into a single row.
type Notification struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"index;not null"`
	SubjectID snowflake.ID `gorm:"index;not null"`

	EventType EventType         `gorm:"type:text;not null"`
	DedupeKey string            `gorm:"uniqueIndex;not null"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}

// DedupeKey builds the per-day idempotency key for one subject and event.
func DedupeKey(subjectID snowflake.ID, eventType EventType, day time.Time) string {
	return subjectID.String() + "|" + string(eventType) + "|" + day.UTC().Format("2006-01-02")
}

// Sink accepts notifications. Publishing the same dedupe key twice is a
// no-op, not an error.
type Sink interface {
	Publish(ctx context.Context, n *Notification) (published bool, err error)
}
