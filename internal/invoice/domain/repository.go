package domain

import (
	"context"

	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Invoice, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Invoice, error)
	// FindByIDGlobal skips the business scope; gateway callbacks only
	// carry the payment reference.
	FindByIDGlobal(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	// FindByIDForUpdate locks the invoice row for the duration of the
	// surrounding transaction.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, businessID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	ReplaceItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []InvoiceItem) error
}

type ListInvoiceFilter struct {
	Status        Status
	CustomerID    snowflake.ID
	InvoiceNumber string
}
