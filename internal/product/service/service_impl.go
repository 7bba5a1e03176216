package service

import (
	"context"
	"strings"
	"time"

	"github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/pkg/db"
	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return newService(p)
}

// NewStockKeeper exposes the inventory side of the service to the
// invoice lifecycle.
func NewStockKeeper(p Params) domain.StockKeeper {
	return newService(p)
}

func newService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	if req.BusinessID == 0 {
		return domain.Product{}, domain.ErrInvalidBusiness
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		return domain.Product{}, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.SellingPrice.IsNegative() || req.CostPrice.IsNegative() {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	productType := req.Type
	if productType == "" {
		productType = domain.TypeProduct
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "pcs"
	}

	trackInventory := productType == domain.TypeProduct
	if req.TrackInventory != nil {
		trackInventory = *req.TrackInventory
	}
	lowStockThreshold := int64(10)
	if req.LowStockThreshold != nil {
		lowStockThreshold = *req.LowStockThreshold
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:                s.genID.Generate(),
		BusinessID:        req.BusinessID,
		SKU:               sku,
		Name:              name,
		Description:       strings.TrimSpace(req.Description),
		Type:              productType,
		Unit:              unit,
		CostPrice:         req.CostPrice,
		SellingPrice:      req.SellingPrice,
		StockQuantity:     req.StockQuantity,
		StockAvailable:    req.StockQuantity,
		TrackInventory:    trackInventory,
		LowStockThreshold: lowStockThreshold,
		Attributes:        datatypes.JSONMap{},
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Product{}, domain.ErrDuplicateSKU
		}
		return domain.Product{}, err
	}

	return product, nil
}

func (s *Service) GetByID(ctx context.Context, businessID snowflake.ID, id string) (domain.Product, error) {
	product, err := s.find(ctx, businessID, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) (domain.ListProductResponse, error) {
	if req.BusinessID == 0 {
		return domain.ListProductResponse{}, domain.ErrInvalidBusiness
	}

	page := pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(req.PageSize),
	}

	items, err := s.repo.List(ctx, s.db, req.BusinessID, domain.ListProductFilter{
		Name:     strings.TrimSpace(req.Name),
		SKU:      strings.ToUpper(strings.TrimSpace(req.SKU)),
		Type:     req.Type,
		IsActive: req.IsActive,
	}, page)
	if err != nil {
		return domain.ListProductResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Limit(), func(product *domain.Product) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        product.ID.String(),
			CreatedAt: product.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}

	return domain.ListProductResponse{
		PageInfo: *pageInfo,
		Products: products,
	}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateProductRequest) (domain.Product, error) {
	product, err := s.find(ctx, req.BusinessID, req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Unit != nil {
		product.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		if req.SellingPrice.IsNegative() {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.SellingPrice = *req.SellingPrice
	}
	if req.TrackInventory != nil {
		product.TrackInventory = *req.TrackInventory
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	product.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return domain.Product{}, err
	}

	return *product, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.AdjustStockRequest) (domain.Product, error) {
	product, err := s.find(ctx, req.BusinessID, req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	var updated domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockProduct(ctx, tx, product.BusinessID, product.ID)
		if err != nil {
			return err
		}

		previous := locked.StockAvailable
		locked.StockQuantity += req.Quantity
		if locked.StockQuantity < 0 {
			return domain.ErrInsufficientStock
		}
		locked.StockAvailable = locked.StockQuantity - locked.StockReserved
		locked.UpdatedAt = time.Now().UTC()

		if err := s.repo.UpdateStock(ctx, tx, locked); err != nil {
			return err
		}
		if err := s.recordMovement(ctx, tx, locked, domain.MovementAdjustment, req.Quantity, "", req.Notes, previous); err != nil {
			return err
		}

		updated = *locked
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	return updated, nil
}

func (s *Service) ListMovements(ctx context.Context, businessID snowflake.ID, id string) ([]domain.StockMovement, error) {
	product, err := s.find(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, s.db, businessID, product.ID)
}

// ReserveForSale holds stock for invoice lines while payment is pending.
func (s *Service) ReserveForSale(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, lines []domain.StockLine, reference string) error {
	return s.moveStock(ctx, tx, businessID, lines, reference, domain.MovementSaleReserved)
}

// CompleteSale converts the reservation into an actual stock reduction
// once the invoice is paid.
func (s *Service) CompleteSale(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, lines []domain.StockLine, reference string) error {
	return s.moveStock(ctx, tx, businessID, lines, reference, domain.MovementSaleCompleted)
}

// CancelSale releases any reservation when the invoice is cancelled.
func (s *Service) CancelSale(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, lines []domain.StockLine, reference string) error {
	return s.moveStock(ctx, tx, businessID, lines, reference, domain.MovementSaleCancelled)
}

func (s *Service) moveStock(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, lines []domain.StockLine, reference string, movement domain.StockMovementType) error {
	if tx == nil {
		tx = s.db
	}

	for _, line := range lines {
		if line.ProductID == 0 || line.Quantity <= 0 {
			continue
		}

		product, err := s.lockProduct(ctx, tx, businessID, line.ProductID)
		if err != nil {
			return err
		}
		if product == nil || !product.TrackInventory {
			continue
		}

		previous := product.StockAvailable
		switch movement {
		case domain.MovementSaleReserved:
			product.StockReserved += line.Quantity
		case domain.MovementSaleCompleted:
			product.StockReserved -= line.Quantity
			if product.StockReserved < 0 {
				product.StockReserved = 0
			}
			product.StockQuantity -= line.Quantity
		case domain.MovementSaleCancelled:
			product.StockReserved -= line.Quantity
			if product.StockReserved < 0 {
				product.StockReserved = 0
			}
		}
		product.StockAvailable = product.StockQuantity - product.StockReserved
		product.UpdatedAt = time.Now().UTC()

		if err := s.repo.UpdateStock(ctx, tx, product); err != nil {
			return err
		}

		quantity := line.Quantity
		if movement == domain.MovementSaleReserved || movement == domain.MovementSaleCompleted {
			quantity = -line.Quantity
		}
		if err := s.recordMovement(ctx, tx, product, movement, quantity, reference, "", previous); err != nil {
			return err
		}

		if product.IsLowStock() {
			s.log.Warn("product low on stock",
				zap.String("business_id", businessID.String()),
				zap.String("product_id", product.ID.String()),
				zap.String("sku", product.SKU),
				zap.Int64("available", product.StockAvailable),
			)
		}
	}

	return nil
}

func (s *Service) lockProduct(ctx context.Context, tx *gorm.DB, businessID, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.ForUpdate(tx.WithContext(ctx)).
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

func (s *Service) recordMovement(ctx context.Context, tx *gorm.DB, product *domain.Product, movementType domain.StockMovementType, quantity int64, reference, notes string, previous int64) error {
	return s.repo.InsertMovement(ctx, tx, &domain.StockMovement{
		ID:                s.genID.Generate(),
		BusinessID:        product.BusinessID,
		ProductID:         product.ID,
		Type:              movementType,
		Quantity:          quantity,
		Reference:         reference,
		Notes:             notes,
		PreviousAvailable: previous,
		NewAvailable:      product.StockAvailable,
		CreatedAt:         time.Now().UTC(),
	})
}

func (s *Service) find(ctx context.Context, businessID snowflake.ID, id string) (*domain.Product, error) {
	if businessID == 0 {
		return nil, domain.ErrInvalidBusiness
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	product, err := s.repo.FindByID(ctx, s.db, businessID, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}
