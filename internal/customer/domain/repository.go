package domain

import (
	"context"

	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error

	// RefreshStats recomputes the customer aggregates from invoices.
	RefreshStats(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) error
}
