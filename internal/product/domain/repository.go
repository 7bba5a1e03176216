package domain

import (
	"context"

	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Product, error)
	FindBySKU(ctx context.Context, db *gorm.DB, businessID snowflake.ID, sku string) (*Product, error)
	List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, filter ListProductFilter, page pagination.Pagination) ([]*Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error

	UpdateStock(ctx context.Context, db *gorm.DB, product *Product) error
	InsertMovement(ctx context.Context, db *gorm.DB, movement *StockMovement) error
	ListMovements(ctx context.Context, db *gorm.DB, businessID, productID snowflake.ID) ([]StockMovement, error)
}

type ListProductFilter struct {
	Name     string
	SKU      string
	Type     ProductType
	IsActive *bool
}
