package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/classbill/classbill/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ListMissingReceipts(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("org_id = ? AND receipt_no IS NULL", orgID).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *repo) PersistReceiptIfAbsent(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, receiptNo string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments SET receipt_no = ?, updated_at = ? WHERE org_id = ? AND id = ? AND receipt_no IS NULL`,
		receiptNo,
		time.Now().UTC(),
		orgID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, paidAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, paid_at = ?, updated_at = ? WHERE org_id = ? AND id = ? AND status = ?`,
		paymentdomain.PaymentStatusCompleted,
		paidAt,
		paidAt,
		orgID,
		id,
		paymentdomain.PaymentStatusPending,
	).Error
}

func (r *repo) CountCompletedByPlan(ctx context.Context, db *gorm.DB, orgID, planID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM payments WHERE org_id = ? AND plan_id = ? AND status = ?`,
		orgID,
		planID,
		paymentdomain.PaymentStatusCompleted,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
