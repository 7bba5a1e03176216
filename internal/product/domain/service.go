package domain

import (
	"context"
	"errors"

	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	BusinessID        snowflake.ID
	SKU               string
	Name              string
	Description       string
	Type              ProductType
	Unit              string
	CostPrice         decimal.Decimal
	SellingPrice      decimal.Decimal
	StockQuantity     int64
	TrackInventory    *bool
	LowStockThreshold *int64
}

type UpdateProductRequest struct {
	BusinessID        snowflake.ID
	ID                string
	Name              *string
	Description       *string
	Unit              *string
	CostPrice         *decimal.Decimal
	SellingPrice      *decimal.Decimal
	TrackInventory    *bool
	LowStockThreshold *int64
	IsActive          *bool
}

type ListProductRequest struct {
	BusinessID snowflake.ID
	PageToken  string
	PageSize   int32
	Name       string
	SKU        string
	Type       ProductType
	IsActive   *bool
}

type ListProductResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type AdjustStockRequest struct {
	BusinessID snowflake.ID
	ID         string
	Quantity   int64
	Notes      string
}

// StockLine ties an invoice line to a product for inventory movements.
type StockLine struct {
	ProductID snowflake.ID
	Quantity  int64
}

type Service interface {
	Create(context.Context, CreateProductRequest) (Product, error)
	GetByID(ctx context.Context, businessID snowflake.ID, id string) (Product, error)
	List(context.Context, ListProductRequest) (ListProductResponse, error)
	Update(context.Context, UpdateProductRequest) (Product, error)
	AdjustStock(context.Context, AdjustStockRequest) (Product, error)
	ListMovements(ctx context.Context, businessID snowflake.ID, id string) ([]StockMovement, error)
}

// StockKeeper is the inventory interface the invoice lifecycle drives.
// All three calls run inside the caller's transaction.
type StockKeeper interface {
	ReserveForSale(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, lines []StockLine, reference string) error
	CompleteSale(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, lines []StockLine, reference string) error
	CancelSale(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, lines []StockLine, reference string) error
}

var (
	ErrInvalidBusiness   = errors.New("invalid_business")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidSKU        = errors.New("invalid_sku")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrDuplicateSKU      = errors.New("duplicate_sku")
	ErrNotFound          = errors.New("not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
)
