package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Resolver returns the tax policy that applies to an invoice being
// computed for a business, creating default settings on first use.
type Resolver interface {
	Resolve(ctx context.Context, businessID snowflake.ID) (Config, error)
}

type Service interface {
	Get(ctx context.Context, businessID snowflake.ID) (*Response, error)
	Update(ctx context.Context, businessID snowflake.ID, req UpdateRequest) (*Response, error)
}

type UpdateRequest struct {
	Enabled             *bool            `json:"enabled,omitempty"`
	Name                *string          `json:"name,omitempty"`
	Rate                *decimal.Decimal `json:"rate,omitempty"`
	AllowManualOverride *bool            `json:"allow_manual_override,omitempty"`
}

type Response struct {
	ID                  string          `json:"id"`
	BusinessID          string          `json:"business_id"`
	Enabled             bool            `json:"enabled"`
	Name                string          `json:"name"`
	Rate                decimal.Decimal `json:"rate"`
	AllowManualOverride bool            `json:"allow_manual_override"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
