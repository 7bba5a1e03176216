package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CredentialsProvider resolves the live Paystack keypair for a business.
// Gateway-facing code depends on this narrow interface only.
type CredentialsProvider interface {
	Credentials(ctx context.Context, businessID snowflake.ID) (*Credentials, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	ConnectPaystack(ctx context.Context, req ConnectPaystackRequest) (*PaystackStatus, error)
	DisconnectPaystack(ctx context.Context, id string) (*PaystackStatus, error)
	PaystackStatus(ctx context.Context, id string) (*PaystackStatus, error)
}

type CreateRequest struct {
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	Currency      string            `json:"currency"`
	TimezoneName  string            `json:"timezone_name"`
	Address       datatypes.JSONMap `json:"address"`
	InvoicePrefix string            `json:"invoice_prefix"`
	ReceiptPrefix string            `json:"receipt_prefix"`
}

type UpdateRequest struct {
	ID             string             `json:"id"`
	Name           *string            `json:"name,omitempty"`
	Email          *string            `json:"email,omitempty"`
	Phone          *string            `json:"phone,omitempty"`
	Currency       *string            `json:"currency,omitempty"`
	TimezoneName   *string            `json:"timezone_name,omitempty"`
	Address        *datatypes.JSONMap `json:"address,omitempty"`
	InvoicePrefix  *string            `json:"invoice_prefix,omitempty"`
	InvoiceDueDays *int               `json:"invoice_due_days,omitempty"`
	InvoiceTerms   *string            `json:"invoice_terms,omitempty"`
	ReceiptPrefix  *string            `json:"receipt_prefix,omitempty"`
	IsActive       *bool              `json:"is_active,omitempty"`
}

type ConnectPaystackRequest struct {
	ID             string `json:"id"`
	PublicKey      string `json:"public_key"`
	SecretKey      string `json:"secret_key"`
	WebhookEnabled *bool  `json:"webhook_enabled,omitempty"`
}

type PaystackStatus struct {
	Enabled         bool       `json:"enabled"`
	WebhookEnabled  bool       `json:"webhook_enabled"`
	PublicKey       string     `json:"public_key,omitempty"`
	SecretKeyMasked string     `json:"secret_key_masked,omitempty"`
	ConnectedAt     *time.Time `json:"connected_at,omitempty"`
}

type Response struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone"`
	Currency          string            `json:"currency"`
	TimezoneName      string            `json:"timezone_name"`
	Address           datatypes.JSONMap `json:"address"`
	InvoicePrefix     string            `json:"invoice_prefix"`
	InvoiceNextNumber int64             `json:"invoice_next_number"`
	InvoiceDueDays    int               `json:"invoice_due_days"`
	InvoiceTerms      string            `json:"invoice_terms"`
	ReceiptPrefix     string            `json:"receipt_prefix"`
	IsActive          bool              `json:"is_active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
