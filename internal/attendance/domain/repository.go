package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *AttendanceEvent) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*AttendanceEvent, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*AttendanceEvent, error)
	FindOpenBySubjectID(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID) (*AttendanceEvent, error)
	Complete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, checkOutAt time.Time, durationMinutes int64) error
	ListClosedInWindow(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID, from, to time.Time) ([]AttendanceEvent, error)
	CountOpenInWindow(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID, from, to time.Time) (int64, error)
}
