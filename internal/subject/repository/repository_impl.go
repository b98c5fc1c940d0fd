package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() subjectdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subject *subjectdomain.Subject) error {
	return db.WithContext(ctx).Create(subject).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*subjectdomain.Subject, error) {
	var subject subjectdomain.Subject
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&subject).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subject, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*subjectdomain.Subject, error) {
	stmt := db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id)
	// sqlite has no row locks; the serialization point degrades to the
	// surrounding transaction there.
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var subject subjectdomain.Subject
	if err := stmt.First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subject, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status subjectdomain.SubjectStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subjects SET status = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		status,
		time.Now().UTC(),
		orgID,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&subjectdomain.Subject{}).Error
}
