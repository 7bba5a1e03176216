// Package domain contains payment records and the verified-charge value
// the reconciliation engine consumes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	GatewayPaystack = "paystack"
	GatewayManual   = "manual"

	SourceWebhook  = "webhook"
	SourceRedirect = "redirect"
	SourceManual   = "manual"
)

type Payment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID `gorm:"column:business_id;not null;index" json:"business_id"`
	CustomerID snowflake.ID `gorm:"column:customer_id;not null;index" json:"customer_id"`
	InvoiceID  snowflake.ID `gorm:"column:invoice_id;not null;index;uniqueIndex:ux_payments_reference,priority:1" json:"invoice_id"`

	// Gateway plus reference form the durable idempotency key with the
	// invoice. The unique index is the last line of defense when two
	// deliveries race past the lookup.
	Gateway   string `gorm:"type:text;not null;uniqueIndex:ux_payments_reference,priority:2" json:"gateway"`
	Reference string `gorm:"column:payment_reference;type:text;not null;uniqueIndex:ux_payments_reference,priority:3" json:"reference"`

	Amount   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Currency string          `gorm:"type:text;not null" json:"currency"`
	Method   string          `gorm:"type:text;not null" json:"method"`
	Status   string          `gorm:"type:text;not null" json:"status"`

	Channel         string          `gorm:"type:text" json:"channel,omitempty"`
	Fees            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"fees"`
	GatewayResponse string          `gorm:"column:gateway_response;type:text" json:"gateway_response,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`

	PaidAt     *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
	VerifiedAt *time.Time `gorm:"column:verified_at" json:"verified_at,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// VerifiedCharge is the gateway's word on one charge, already verified
// against the Paystack API or signed webhook. Amounts are minor units as
// they arrive on the wire.
type VerifiedCharge struct {
	Reference       string
	Status          string
	AmountMinor     int64
	Currency        string
	Channel         string
	FeesMinor       int64
	GatewayResponse string
	CustomerEmail   string
	PaidAt          *time.Time
	Raw             datatypes.JSONMap
}

// Successful reports whether the gateway settled the charge.
func (c VerifiedCharge) Successful() bool {
	return c.Status == "success"
}
