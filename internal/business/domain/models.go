// Package domain contains persistence models for the business tenant.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Business represents a tenant. Every invoice, customer, product and
// payment hangs off exactly one business.
type Business struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"type:text;not null" json:"name"`
	Email string       `gorm:"type:text;not null" json:"email"`
	Phone string       `gorm:"type:text" json:"phone"`

	Currency     string `gorm:"type:text;not null;default:'USD'" json:"currency"`
	TimezoneName string `gorm:"column:timezone_name;not null;default:'UTC'" json:"timezone_name"`

	Address  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"address"`
	Metadata datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`

	// Invoice/receipt numbering. Counters advance under row lock so two
	// concurrent issuers never mint the same number.
	InvoicePrefix     string `gorm:"column:invoice_prefix;type:text;not null;default:'INV'" json:"invoice_prefix"`
	InvoiceNextNumber int64  `gorm:"column:invoice_next_number;not null;default:1" json:"invoice_next_number"`
	InvoiceDueDays    int    `gorm:"column:invoice_due_days;not null;default:30" json:"invoice_due_days"`
	InvoiceTerms      string `gorm:"column:invoice_terms;type:text" json:"invoice_terms"`
	ReceiptPrefix     string `gorm:"column:receipt_prefix;type:text;not null;default:'RCP'" json:"receipt_prefix"`
	ReceiptNextNumber int64  `gorm:"column:receipt_next_number;not null;default:1" json:"receipt_next_number"`

	// Paystack connection. The secret key is stored sealed; only the
	// last four characters are kept in the clear for display.
	PaystackEnabled        bool       `gorm:"column:paystack_enabled;not null;default:false" json:"paystack_enabled"`
	PaystackPublicKey      string     `gorm:"column:paystack_public_key;type:text" json:"-"`
	PaystackSecretSealed   string     `gorm:"column:paystack_secret_sealed;type:text" json:"-"`
	PaystackSecretLast4    string     `gorm:"column:paystack_secret_last4;type:text" json:"-"`
	PaystackWebhookEnabled bool       `gorm:"column:paystack_webhook_enabled;not null;default:true" json:"-"`
	PaystackConnectedAt    *time.Time `gorm:"column:paystack_connected_at" json:"-"`

	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Business) TableName() string { return "businesses" }

func (b *Business) Validate() error {
	if b.Name == "" {
		return ErrInvalidName
	}
	if b.Email == "" {
		return ErrInvalidEmail
	}
	return nil
}

// FormatDocumentNumber renders a counter value in the tenant's document
// number scheme, e.g. INV-00042.
func FormatDocumentNumber(prefix string, n int64) string {
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%05d", prefix, n)
}

// Credentials is a decrypted Paystack keypair for one business.
type Credentials struct {
	PublicKey string
	SecretKey string
}
