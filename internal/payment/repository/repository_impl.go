package repository

import (
	"context"

	paymentdomain "github.com/billora/billora/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, gateway, reference string) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("invoice_id = ? AND gateway = ? AND payment_reference = ?", invoiceID, gateway, reference).
		First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, channel = ?, fees = ?, gateway_response = ?, metadata = ?,
		     paid_at = ?, verified_at = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		payment.Status,
		payment.Channel,
		payment.Fees,
		payment.GatewayResponse,
		payment.Metadata,
		payment.PaidAt,
		payment.VerifiedAt,
		payment.Notes,
		payment.UpdatedAt,
		payment.ID,
	).Error
}
