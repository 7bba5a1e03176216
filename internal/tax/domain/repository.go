package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindByBusiness(ctx context.Context, businessID snowflake.ID) (*TaxSettings, error)
	Create(ctx context.Context, settings *TaxSettings) error
	Update(ctx context.Context, settings *TaxSettings) error
}
