package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, business *Business) error
	FindByID(ctx context.Context, id snowflake.ID) (*Business, error)
	List(ctx context.Context, filter ListRequest) ([]Business, error)
	Update(ctx context.Context, business *Business) error

	// NextInvoiceNumber and NextReceiptNumber advance the tenant counter
	// inside tx under row lock and return the formatted number.
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB, id snowflake.ID) (string, error)
	NextReceiptNumber(ctx context.Context, tx *gorm.DB, id snowflake.ID) (string, error)
}

type ListRequest struct {
	Name     string
	IsActive *bool
	SortBy   string
	OrderBy  string
}
