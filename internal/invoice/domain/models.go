// Package domain contains the invoice aggregate and its state machine.
package domain

import (
	"time"

	"github.com/billora/billora/internal/money"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status is the invoice lifecycle state. Values are stored lowercase.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusPartial   Status = "partial"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
	StatusVoid      Status = "void"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusVoid
}

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

type Invoice struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID `gorm:"column:business_id;not null;index;uniqueIndex:ux_invoices_number,priority:1" json:"business_id"`
	CustomerID snowflake.ID `gorm:"column:customer_id;not null;index" json:"customer_id"`

	InvoiceNumber string `gorm:"column:invoice_number;type:text;not null;uniqueIndex:ux_invoices_number,priority:2" json:"invoice_number"`
	// Slug is the unguessable public token for unauthenticated access.
	Slug   string `gorm:"type:text;not null;uniqueIndex:ux_invoices_slug" json:"slug"`
	Status Status `gorm:"type:text;not null;default:'draft'" json:"status"`

	Currency string `gorm:"type:text;not null" json:"currency"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`

	DiscountType   DiscountType    `gorm:"column:discount_type;type:text;not null;default:'fixed'" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"column:discount_value;type:decimal(18,4);not null;default:0" json:"discount_value"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:decimal(18,4);not null;default:0" json:"discount_amount"`

	TaxName         string          `gorm:"column:tax_name;type:text" json:"tax_name,omitempty"`
	TaxRate         decimal.Decimal `gorm:"column:tax_rate;type:decimal(6,2);not null;default:0" json:"tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"column:tax_amount;type:decimal(18,4);not null;default:0" json:"tax_amount"`
	IsTaxOverridden bool            `gorm:"column:is_tax_overridden;not null;default:false" json:"is_tax_overridden"`

	Shipping decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"shipping"`

	Subtotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	Total      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total"`
	AmountPaid decimal.Decimal `gorm:"column:amount_paid;type:decimal(18,4);not null;default:0" json:"amount_paid"`
	Balance    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"balance"`

	IssueDate time.Time  `gorm:"column:issue_date;not null" json:"issue_date"`
	DueDate   *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	SentAt    *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	ViewedAt  *time.Time `gorm:"column:viewed_at" json:"viewed_at,omitempty"`
	PaidAt    *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`

	// PaymentConfirmationEmailsSentAt gates the one-time confirmation
	// email across duplicate gateway deliveries.
	PaymentConfirmationEmailsSentAt *time.Time `gorm:"column:payment_confirmation_emails_sent_at" json:"-"`

	Notes    string            `gorm:"type:text" json:"notes,omitempty"`
	Terms    string            `gorm:"type:text" json:"terms,omitempty"`
	Metadata datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

type InvoiceItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"column:invoice_id;not null;index" json:"invoice_id"`
	ProductID snowflake.ID `gorm:"column:product_id;index" json:"product_id,omitempty"`

	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:decimal(18,4);not null" json:"unit_price"`

	DiscountType  DiscountType    `gorm:"column:discount_type;type:text;not null;default:'fixed'" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"column:discount_value;type:decimal(18,4);not null;default:0" json:"discount_value"`
	TaxRate       decimal.Decimal `gorm:"column:tax_rate;type:decimal(6,2);not null;default:0" json:"tax_rate"`

	LineSubtotal decimal.Decimal `gorm:"column:line_subtotal;type:decimal(18,4);not null;default:0" json:"line_subtotal"`
	LineTax      decimal.Decimal `gorm:"column:line_tax;type:decimal(18,4);not null;default:0" json:"line_tax"`
	LineTotal    decimal.Decimal `gorm:"column:line_total;type:decimal(18,4);not null;default:0" json:"line_total"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// RecordPayment applies amount to the aggregate, rolls the status
// machine forward and reports whether this payment moved the invoice
// into paid. Amount validation is the caller's job.
func (inv *Invoice) RecordPayment(amount decimal.Decimal, now time.Time) (transitionedToPaid bool) {
	wasPaid := inv.Status == StatusPaid

	inv.AmountPaid = money.Round2(inv.AmountPaid.Add(amount))
	inv.Balance = money.Round2(money.MaxZero(inv.Total.Sub(inv.AmountPaid)))
	inv.Status = NextStatus(inv.Status, inv.Balance, inv.Total, inv.AmountPaid, inv.SentAt, inv.DueDate, now)
	inv.UpdatedAt = now

	if inv.Status == StatusPaid && inv.PaidAt == nil {
		inv.PaidAt = &now
	}
	return inv.Status == StatusPaid && !wasPaid
}

// StockLines returns the product-linked item quantities for inventory
// movements. Fractional quantities round up so reservations never
// undercount.
func (inv *Invoice) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(inv.Items))
	for _, item := range inv.Items {
		if item.ProductID == 0 {
			continue
		}
		qty := item.Quantity.Ceil().IntPart()
		if qty <= 0 {
			continue
		}
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: qty})
	}
	return lines
}

// StockLine mirrors the inventory contract without importing it.
type StockLine struct {
	ProductID snowflake.ID
	Quantity  int64
}
