package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Customer struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID      `gorm:"column:business_id;not null;index" json:"business_id"`
	Name       string            `gorm:"not null" json:"name"`
	Email      string            `gorm:"not null" json:"email"`
	Phone      string            `gorm:"type:text" json:"phone,omitempty"`
	Currency   string            `gorm:"column:currency" json:"currency,omitempty"`
	Address    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"address,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`

	// Aggregates refreshed from the invoices table after payment and
	// invoice mutations. Advisory, never used for money math.
	TotalInvoiced      decimal.Decimal `gorm:"column:total_invoiced;type:decimal(18,4);not null;default:0" json:"total_invoiced"`
	TotalPaid          decimal.Decimal `gorm:"column:total_paid;type:decimal(18,4);not null;default:0" json:"total_paid"`
	OutstandingBalance decimal.Decimal `gorm:"column:outstanding_balance;type:decimal(18,4);not null;default:0" json:"outstanding_balance"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
