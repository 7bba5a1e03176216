package repository

import (
	"context"

	receiptdomain "github.com/billora/billora/internal/receipt/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() receiptdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, receipt *receiptdomain.Receipt) error {
	return db.WithContext(ctx).Create(receipt).Error
}

func (r *repo) FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*receiptdomain.Receipt, error) {
	var receipt receiptdomain.Receipt
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		First(&receipt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*receiptdomain.Receipt, error) {
	var receipt receiptdomain.Receipt
	err := db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&receipt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]receiptdomain.Receipt, error) {
	var receipts []receiptdomain.Receipt
	err := db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("issued_at desc, id desc").
		Find(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}
