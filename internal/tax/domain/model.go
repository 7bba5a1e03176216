package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// TaxSettings is the per-business tax policy. One row per business; a
// business without a row gets the defaults below on first resolve.
type TaxSettings struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID `gorm:"column:business_id;not null;uniqueIndex" json:"business_id"`

	Enabled bool   `gorm:"not null;default:false" json:"enabled"`
	Name    string `gorm:"type:text;not null;default:'VAT'" json:"name"`
	// Rate is a percentage (7.5 means 7.5%), not a fraction.
	Rate decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"rate"`

	AllowManualOverride bool `gorm:"column:allow_manual_override;not null;default:true" json:"allow_manual_override"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TaxSettings) TableName() string { return "tax_settings" }

func (t *TaxSettings) Validate() error {
	if t.BusinessID == 0 {
		return ErrInvalidBusiness
	}
	if t.Rate.IsNegative() {
		return ErrInvalidTaxRate
	}
	if t.Name == "" {
		return ErrInvalidTaxName
	}
	return nil
}

// Config carries the resolved tax policy to the invoice calculator as a
// plain value so the calculator never touches storage.
func (t *TaxSettings) Config() Config {
	return Config{
		Enabled:             t.Enabled,
		Name:                t.Name,
		Rate:                t.Rate,
		AllowManualOverride: t.AllowManualOverride,
	}
}

// Config is the resolved tax policy applied to one invoice computation.
type Config struct {
	Enabled             bool            `json:"enabled"`
	Name                string          `json:"name"`
	Rate                decimal.Decimal `json:"rate"`
	AllowManualOverride bool            `json:"allow_manual_override"`
}

// Override is a caller-supplied tax override for a single invoice.
// Amount wins over Rate when both are set.
type Override struct {
	Rate   *decimal.Decimal `json:"rate,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Name   string           `json:"name,omitempty"`
}

func (o *Override) Validate() error {
	if o == nil {
		return nil
	}
	if o.Rate == nil && o.Amount == nil {
		return ErrEmptyOverride
	}
	if o.Rate != nil && o.Rate.IsNegative() {
		return ErrInvalidTaxRate
	}
	if o.Amount != nil && o.Amount.IsNegative() {
		return ErrInvalidTaxAmount
	}
	return nil
}
