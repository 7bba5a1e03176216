package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ProductType string

const (
	TypeProduct ProductType = "product"
	TypeService ProductType = "service"
	TypeDigital ProductType = "digital"
)

type Product struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID `gorm:"column:business_id;not null;index;uniqueIndex:ux_products_sku,priority:1" json:"business_id"`

	SKU         string      `gorm:"column:sku;type:text;not null;uniqueIndex:ux_products_sku,priority:2" json:"sku"`
	Name        string      `gorm:"type:text;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	Type        ProductType `gorm:"type:text;not null;default:'product'" json:"type"`
	Unit        string      `gorm:"type:text;not null;default:'pcs'" json:"unit"`

	CostPrice    decimal.Decimal `gorm:"column:cost_price;type:decimal(18,4);not null;default:0" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"column:selling_price;type:decimal(18,4);not null" json:"selling_price"`

	// Stock. Available is always quantity - reserved; it is recomputed on
	// every stock mutation rather than trusted from callers.
	StockQuantity  int64 `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	StockReserved  int64 `gorm:"column:stock_reserved;not null;default:0" json:"stock_reserved"`
	StockAvailable int64 `gorm:"column:stock_available;not null;default:0" json:"stock_available"`

	TrackInventory    bool  `gorm:"column:track_inventory;not null;default:true" json:"track_inventory"`
	LowStockThreshold int64 `gorm:"column:low_stock_threshold;not null;default:10" json:"low_stock_threshold"`

	Attributes datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"attributes,omitempty"`

	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// IsLowStock reports whether available stock has fallen to the alert
// threshold for tracked products.
func (p *Product) IsLowStock() bool {
	return p.TrackInventory && p.StockAvailable <= p.LowStockThreshold
}

// StockMovementType labels one inventory transaction.
type StockMovementType string

const (
	MovementSaleReserved  StockMovementType = "sale_reserved"
	MovementSaleCompleted StockMovementType = "sale_completed"
	MovementSaleCancelled StockMovementType = "sale_cancelled"
	MovementAdjustment    StockMovementType = "adjustment"
	MovementPurchase      StockMovementType = "purchase"
)

// StockMovement is the append-only audit trail of stock changes.
type StockMovement struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID      `gorm:"column:business_id;not null;index" json:"business_id"`
	ProductID  snowflake.ID      `gorm:"column:product_id;not null;index" json:"product_id"`
	Type       StockMovementType `gorm:"type:text;not null" json:"type"`
	Quantity   int64             `gorm:"not null" json:"quantity"`
	Reference  string            `gorm:"type:text" json:"reference,omitempty"`
	Notes      string            `gorm:"type:text" json:"notes,omitempty"`

	PreviousAvailable int64 `gorm:"column:previous_available;not null;default:0" json:"previous_available"`
	NewAvailable      int64 `gorm:"column:new_available;not null;default:0" json:"new_available"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (StockMovement) TableName() string { return "stock_movements" }
