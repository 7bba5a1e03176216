package repository

import (
	"context"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/pkg/db"
	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, gdb *gorm.DB, invoice *invoicedomain.Invoice) error {
	return gdb.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, gdb *gorm.DB, businessID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := gdb.WithContext(ctx).
		Preload("Items").
		Where("business_id = ? AND id = ?", businessID, id).
		First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindBySlug(ctx context.Context, gdb *gorm.DB, slug string) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := gdb.WithContext(ctx).
		Preload("Items").
		Where("slug = ?", slug).
		First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByIDGlobal(ctx context.Context, gdb *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := gdb.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, businessID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	// Items load outside the locking clause; FOR UPDATE with a join
	// confuses some dialects.
	if err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Order("id asc").
		Find(&invoice.Items).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, gdb *gorm.DB, businessID snowflake.ID, filter invoicedomain.ListInvoiceFilter, page pagination.Pagination) ([]*invoicedomain.Invoice, error) {
	var invoices []*invoicedomain.Invoice
	stmt := gdb.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Preload("Items").
		Where("business_id = ?", businessID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.InvoiceNumber != "" {
		stmt = stmt.Where("invoice_number = ?", filter.InvoiceNumber)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.ID != "" {
			stmt = stmt.Where("id < ?", cursor.ID)
		}
	}

	err := stmt.
		Order("id desc").
		Limit(page.Limit() + 1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Update(ctx context.Context, gdb *gorm.DB, invoice *invoicedomain.Invoice) error {
	return gdb.WithContext(ctx).Exec(
		`UPDATE invoices SET
			status = ?, currency = ?,
			discount_type = ?, discount_value = ?, discount_amount = ?,
			tax_name = ?, tax_rate = ?, tax_amount = ?, is_tax_overridden = ?,
			shipping = ?, subtotal = ?, total = ?, amount_paid = ?, balance = ?,
			due_date = ?, sent_at = ?, viewed_at = ?, paid_at = ?,
			payment_confirmation_emails_sent_at = ?,
			notes = ?, terms = ?, metadata = ?, updated_at = ?
		 WHERE business_id = ? AND id = ?`,
		invoice.Status,
		invoice.Currency,
		invoice.DiscountType,
		invoice.DiscountValue,
		invoice.DiscountAmount,
		invoice.TaxName,
		invoice.TaxRate,
		invoice.TaxAmount,
		invoice.IsTaxOverridden,
		invoice.Shipping,
		invoice.Subtotal,
		invoice.Total,
		invoice.AmountPaid,
		invoice.Balance,
		invoice.DueDate,
		invoice.SentAt,
		invoice.ViewedAt,
		invoice.PaidAt,
		invoice.PaymentConfirmationEmailsSentAt,
		invoice.Notes,
		invoice.Terms,
		invoice.Metadata,
		invoice.UpdatedAt,
		invoice.BusinessID,
		invoice.ID,
	).Error
}

func (r *repo) ReplaceItems(ctx context.Context, gdb *gorm.DB, invoiceID snowflake.ID, items []invoicedomain.InvoiceItem) error {
	if err := gdb.WithContext(ctx).
		Exec(`DELETE FROM invoice_items WHERE invoice_id = ?`, invoiceID).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return gdb.WithContext(ctx).Create(&items).Error
}
