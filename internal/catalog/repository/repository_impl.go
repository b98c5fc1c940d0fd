package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/classbill/classbill/internal/catalog/domain"
	"gorm.io/gorm"
)

type catalog struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) catalogdomain.Catalog {
	return &catalog{db: db}
}

func (c *catalog) ApplicableCharges(ctx context.Context, orgID snowflake.ID, programClass string) ([]catalogdomain.Charge, error) {
	programClass = strings.TrimSpace(programClass)
	if programClass == "" {
		return nil, catalogdomain.ErrInvalidProgramClass
	}

	var entries []catalogdomain.CatalogEntry
	err := c.db.WithContext(ctx).
		Where("org_id = ? AND program_class = ?", orgID, programClass).
		Order("type ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	charges := make([]catalogdomain.Charge, 0, len(entries))
	for _, entry := range entries {
		charges = append(charges, catalogdomain.Charge{
			Type:      entry.Type,
			Amount:    entry.Amount,
			Frequency: entry.Frequency,
		})
	}
	return charges, nil
}
