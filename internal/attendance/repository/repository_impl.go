package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	attendancedomain "github.com/classbill/classbill/internal/attendance/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() attendancedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *attendancedomain.AttendanceEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*attendancedomain.AttendanceEvent, error) {
	var event attendancedomain.AttendanceEvent
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*attendancedomain.AttendanceEvent, error) {
	stmt := db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var event attendancedomain.AttendanceEvent
	if err := stmt.First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repo) FindOpenBySubjectID(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID) (*attendancedomain.AttendanceEvent, error) {
	var event attendancedomain.AttendanceEvent
	err := db.WithContext(ctx).
		Where("org_id = ? AND subject_id = ? AND check_out_at IS NULL", orgID, subjectID).
		Order("check_in_at DESC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repo) Complete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, checkOutAt time.Time, durationMinutes int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE attendance_events
		 SET check_out_at = ?, duration_minutes = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND check_out_at IS NULL`,
		checkOutAt,
		durationMinutes,
		time.Now().UTC(),
		orgID,
		id,
	).Error
}

func (r *repo) ListClosedInWindow(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID, from, to time.Time) ([]attendancedomain.AttendanceEvent, error) {
	var events []attendancedomain.AttendanceEvent
	err := db.WithContext(ctx).
		Where("org_id = ? AND subject_id = ? AND check_out_at IS NOT NULL AND check_in_at >= ? AND check_in_at < ?", orgID, subjectID, from, to).
		Order("check_in_at ASC").
		Find(&events).Error
	return events, err
}

func (r *repo) CountOpenInWindow(ctx context.Context, db *gorm.DB, orgID, subjectID snowflake.ID, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM attendance_events
		 WHERE org_id = ? AND subject_id = ? AND check_out_at IS NULL AND check_in_at >= ? AND check_in_at < ?`,
		orgID,
		subjectID,
		from,
		to,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
