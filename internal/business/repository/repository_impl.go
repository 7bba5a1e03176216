package repository

import (
	"context"

	businessdomain "github.com/billora/billora/internal/business/domain"
	"github.com/billora/billora/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(gdb *gorm.DB) businessdomain.Repository {
	return &repository{db: gdb}
}

func (r *repository) Create(ctx context.Context, business *businessdomain.Business) error {
	return r.db.WithContext(ctx).Create(business).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*businessdomain.Business, error) {
	var business businessdomain.Business
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&business).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &business, nil
}

func (r *repository) List(ctx context.Context, filter businessdomain.ListRequest) ([]businessdomain.Business, error) {
	var items []businessdomain.Business
	stmt := r.db.WithContext(ctx).Model(&businessdomain.Business{})

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}

	if err := stmt.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, business *businessdomain.Business) error {
	return r.db.WithContext(ctx).
		Model(&businessdomain.Business{}).
		Where("id = ?", business.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(business).Error
}

func (r *repository) NextInvoiceNumber(ctx context.Context, tx *gorm.DB, id snowflake.ID) (string, error) {
	return r.nextNumber(ctx, tx, id, "invoice_prefix", "invoice_next_number")
}

func (r *repository) NextReceiptNumber(ctx context.Context, tx *gorm.DB, id snowflake.ID) (string, error) {
	return r.nextNumber(ctx, tx, id, "receipt_prefix", "receipt_next_number")
}

// nextNumber reads the counter under lock, advances it, and renders the
// document number. Callers must pass the transaction the document insert
// runs in so a rollback also rolls back the counter.
func (r *repository) nextNumber(ctx context.Context, tx *gorm.DB, id snowflake.ID, prefixCol, counterCol string) (string, error) {
	if tx == nil {
		tx = r.db
	}

	var row struct {
		Prefix string
		Next   int64
	}
	err := db.ForUpdate(tx.WithContext(ctx)).
		Model(&businessdomain.Business{}).
		Select(prefixCol+" AS prefix, "+counterCol+" AS next").
		Where("id = ?", id).
		Scan(&row).Error
	if err != nil {
		return "", err
	}
	if row.Next == 0 {
		return "", businessdomain.ErrNotFound
	}

	err = tx.WithContext(ctx).
		Model(&businessdomain.Business{}).
		Where("id = ?", id).
		UpdateColumn(counterCol, gorm.Expr(counterCol+" + 1")).Error
	if err != nil {
		return "", err
	}

	return businessdomain.FormatDocumentNumber(row.Prefix, row.Next), nil
}
