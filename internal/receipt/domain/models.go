// Package domain contains the receipt snapshot model. A receipt is an
// immutable record of a settled invoice; it is never recomputed.
package domain

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Receipt struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID `gorm:"column:business_id;not null;index" json:"business_id"`
	CustomerID snowflake.ID `gorm:"column:customer_id;not null;index" json:"customer_id"`
	// One receipt per invoice, enforced by the unique index.
	InvoiceID snowflake.ID `gorm:"column:invoice_id;not null;uniqueIndex:ux_receipts_invoice" json:"invoice_id"`

	ReceiptNumber string `gorm:"column:receipt_number;type:text;not null" json:"receipt_number"`
	InvoiceNumber string `gorm:"column:invoice_number;type:text;not null" json:"invoice_number"`
	Currency      string `gorm:"type:text;not null" json:"currency"`

	// Items is a frozen JSON snapshot of the invoice lines at settlement.
	Items datatypes.JSON `gorm:"type:jsonb;not null" json:"items"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:decimal(18,4);not null;default:0" json:"discount_amount"`
	TaxName        string          `gorm:"column:tax_name;type:text" json:"tax_name,omitempty"`
	TaxRate        decimal.Decimal `gorm:"column:tax_rate;type:decimal(6,2);not null;default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:decimal(18,4);not null;default:0" json:"tax_amount"`
	Shipping       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"shipping"`
	Total          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	AmountPaid     decimal.Decimal `gorm:"column:amount_paid;type:decimal(18,4);not null" json:"amount_paid"`

	PaymentMethod    string `gorm:"column:payment_method;type:text;not null" json:"payment_method"`
	PaymentReference string `gorm:"column:payment_reference;type:text" json:"payment_reference,omitempty"`

	IssuedAt  time.Time `gorm:"column:issued_at;not null" json:"issued_at"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Receipt) TableName() string { return "receipts" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, receipt *Receipt) error
	FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*Receipt, error)
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Receipt, error)
	List(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]Receipt, error)
}

// Issuer creates the receipt on the paid transition. EnsureForInvoice is
// idempotent: an existing receipt is returned untouched.
type Issuer interface {
	EnsureForInvoice(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, method, reference string) (*Receipt, error)
}

type Service interface {
	GetByID(ctx context.Context, businessID snowflake.ID, id string) (Receipt, error)
	GetByInvoice(ctx context.Context, businessID snowflake.ID, invoiceID string) (Receipt, error)
	List(ctx context.Context, businessID snowflake.ID) ([]Receipt, error)
}

var (
	ErrInvalidBusiness = errors.New("invalid_business")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
