package server

import (
	"net/http"
	"strings"

	productdomain "github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createProductRequest struct {
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Type              string          `json:"type"`
	Unit              string          `json:"unit"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	StockQuantity     int64           `json:"stock_quantity"`
	TrackInventory    *bool           `json:"track_inventory,omitempty"`
	LowStockThreshold *int64          `json:"low_stock_threshold,omitempty"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateProductRequest{
		BusinessID:        businessID(c),
		SKU:               strings.TrimSpace(req.SKU),
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		Type:              productdomain.ProductType(strings.TrimSpace(req.Type)),
		Unit:              strings.TrimSpace(req.Unit),
		CostPrice:         req.CostPrice,
		SellingPrice:      req.SellingPrice,
		StockQuantity:     req.StockQuantity,
		TrackInventory:    req.TrackInventory,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name     string `form:"name"`
		SKU      string `form:"sku"`
		Type     string `form:"type"`
		IsActive string `form:"is_active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	isActive, err := parseOptionalBool(query.IsActive)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), productdomain.ListProductRequest{
		BusinessID: businessID(c),
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		Name:       strings.TrimSpace(query.Name),
		SKU:        strings.TrimSpace(query.SKU),
		Type:       productdomain.ProductType(strings.TrimSpace(query.Type)),
		IsActive:   isActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.GetByID(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProductRequest struct {
	Name              *string          `json:"name,omitempty"`
	Description       *string          `json:"description,omitempty"`
	Unit              *string          `json:"unit,omitempty"`
	CostPrice         *decimal.Decimal `json:"cost_price,omitempty"`
	SellingPrice      *decimal.Decimal `json:"selling_price,omitempty"`
	TrackInventory    *bool            `json:"track_inventory,omitempty"`
	LowStockThreshold *int64           `json:"low_stock_threshold,omitempty"`
	IsActive          *bool            `json:"is_active,omitempty"`
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Update(c.Request.Context(), productdomain.UpdateProductRequest{
		BusinessID:        businessID(c),
		ID:                strings.TrimSpace(c.Param("id")),
		Name:              req.Name,
		Description:       req.Description,
		Unit:              req.Unit,
		CostPrice:         req.CostPrice,
		SellingPrice:      req.SellingPrice,
		TrackInventory:    req.TrackInventory,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type adjustStockRequest struct {
	Quantity int64  `json:"quantity"`
	Notes    string `json:"notes"`
}

func (s *Server) AdjustProductStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.AdjustStock(c.Request.Context(), productdomain.AdjustStockRequest{
		BusinessID: businessID(c),
		ID:         strings.TrimSpace(c.Param("id")),
		Quantity:   req.Quantity,
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProductStockMovements(c *gin.Context) {
	resp, err := s.productSvc.ListMovements(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
