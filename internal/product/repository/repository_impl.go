package repository

import (
	"context"

	"github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) FindBySKU(ctx context.Context, db *gorm.DB, businessID snowflake.ID, sku string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Where("business_id = ? AND sku = ?", businessID, sku).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, filter domain.ListProductFilter, page pagination.Pagination) ([]*domain.Product, error) {
	var products []*domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("business_id = ?", businessID)

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.SKU != "" {
		stmt = stmt.Where("sku = ?", filter.SKU)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.ID != "" {
			stmt = stmt.Where("id < ?", cursor.ID)
		}
	}

	err := stmt.
		Order("id desc").
		Limit(page.Limit() + 1).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, description = ?, unit = ?, cost_price = ?, selling_price = ?,
		     track_inventory = ?, low_stock_threshold = ?, is_active = ?, updated_at = ?
		 WHERE business_id = ? AND id = ?`,
		product.Name,
		product.Description,
		product.Unit,
		product.CostPrice,
		product.SellingPrice,
		product.TrackInventory,
		product.LowStockThreshold,
		product.IsActive,
		product.UpdatedAt,
		product.BusinessID,
		product.ID,
	).Error
}

func (r *repo) UpdateStock(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock_quantity = ?, stock_reserved = ?, stock_available = ?, updated_at = ?
		 WHERE business_id = ? AND id = ?`,
		product.StockQuantity,
		product.StockReserved,
		product.StockAvailable,
		product.UpdatedAt,
		product.BusinessID,
		product.ID,
	).Error
}

func (r *repo) InsertMovement(ctx context.Context, db *gorm.DB, movement *domain.StockMovement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stock_movements (
			id, business_id, product_id, type, quantity, reference, notes,
			previous_available, new_available, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movement.ID,
		movement.BusinessID,
		movement.ProductID,
		movement.Type,
		movement.Quantity,
		movement.Reference,
		movement.Notes,
		movement.PreviousAvailable,
		movement.NewAvailable,
		movement.CreatedAt,
	).Error
}

func (r *repo) ListMovements(ctx context.Context, db *gorm.DB, businessID, productID snowflake.ID) ([]domain.StockMovement, error) {
	var movements []domain.StockMovement
	err := db.WithContext(ctx).
		Model(&domain.StockMovement{}).
		Where("business_id = ? AND product_id = ?", businessID, productID).
		Order("created_at desc, id desc").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}
