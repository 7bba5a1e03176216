package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert surfaces the unique-index violation unchanged so callers
	// can map it to the duplicate path.
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByReference(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, gateway, reference string) (*Payment, error)
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Payment, error)
	ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Payment, error)
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
}
