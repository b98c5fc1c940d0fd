package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subject *Subject) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Subject, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Subject, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status SubjectStatus) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
}
