package domain

import (
	"context"
	"time"

	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	ProductID     string          `json:"product_id,omitempty"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	DiscountType  DiscountType    `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal `json:"discount_value,omitempty"`
	TaxRate       decimal.Decimal `json:"tax_rate,omitempty"`
}

type CreateInvoiceRequest struct {
	BusinessID snowflake.ID
	CustomerID string        `json:"customer_id"`
	Items      []ItemRequest `json:"items"`

	DiscountType  DiscountType    `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal `json:"discount_value,omitempty"`

	TaxOverride *taxdomain.Override `json:"tax_override,omitempty"`

	Shipping decimal.Decimal `json:"shipping,omitempty"`
	DueDate  *time.Time      `json:"due_date,omitempty"`
	Notes    string          `json:"notes,omitempty"`
	Terms    string          `json:"terms,omitempty"`
}

type UpdateInvoiceRequest struct {
	BusinessID snowflake.ID
	ID         string

	Items         []ItemRequest    `json:"items,omitempty"`
	DiscountType  *DiscountType    `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal `json:"discount_value,omitempty"`

	TaxOverride      *taxdomain.Override `json:"tax_override,omitempty"`
	ClearTaxOverride bool                `json:"clear_tax_override,omitempty"`

	Shipping *decimal.Decimal `json:"shipping,omitempty"`
	DueDate  *time.Time       `json:"due_date,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
	Terms    *string          `json:"terms,omitempty"`

	// ForceUnlock permits money edits on locked invoices for privileged
	// callers.
	ForceUnlock bool `json:"-"`
}

type RecordPaymentRequest struct {
	BusinessID snowflake.ID
	ID         string

	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

type ListInvoiceRequest struct {
	BusinessID    snowflake.ID
	PageToken     string
	PageSize      int32
	Status        Status
	CustomerID    string
	InvoiceNumber string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, businessID snowflake.ID, id string) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	Update(context.Context, UpdateInvoiceRequest) (Invoice, error)

	// Send marks the invoice sent, reserves stock for product lines and
	// emails the customer best-effort.
	Send(ctx context.Context, businessID snowflake.ID, id string) (Invoice, error)
	// Cancel is terminal; reserved stock is released.
	Cancel(ctx context.Context, businessID snowflake.ID, id string) (Invoice, error)

	// RecordManualPayment applies an out-of-band payment (cash, bank
	// transfer) against the balance.
	RecordManualPayment(context.Context, RecordPaymentRequest) (Invoice, error)
}
