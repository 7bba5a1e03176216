package server

import (
	"net/http"
	"strings"

	businessdomain "github.com/billora/billora/internal/business/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type createBusinessRequest struct {
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	Currency      string            `json:"currency"`
	TimezoneName  string            `json:"timezone_name"`
	Address       datatypes.JSONMap `json:"address"`
	InvoicePrefix string            `json:"invoice_prefix"`
	ReceiptPrefix string            `json:"receipt_prefix"`
}

func (s *Server) CreateBusiness(c *gin.Context) {
	var req createBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.businessSvc.Create(c.Request.Context(), businessdomain.CreateRequest{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Currency:      strings.TrimSpace(req.Currency),
		TimezoneName:  strings.TrimSpace(req.TimezoneName),
		Address:       req.Address,
		InvoicePrefix: strings.TrimSpace(req.InvoicePrefix),
		ReceiptPrefix: strings.TrimSpace(req.ReceiptPrefix),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBusinesses(c *gin.Context) {
	var query struct {
		Name     string `form:"name"`
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

	resp, err := s.businessSvc.List(c.Request.Context(), businessdomain.ListRequest{
		Name:     strings.TrimSpace(query.Name),
		IsActive: isActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBusinessByID(c *gin.Context) {
	resp, err := s.businessSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateBusiness(c *gin.Context) {
	var req businessdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.businessSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type connectPaystackRequest struct {
	PublicKey      string `json:"public_key"`
	SecretKey      string `json:"secret_key"`
	WebhookEnabled *bool  `json:"webhook_enabled,omitempty"`
}

func (s *Server) ConnectPaystack(c *gin.Context) {
	var req connectPaystackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.businessSvc.ConnectPaystack(c.Request.Context(), businessdomain.ConnectPaystackRequest{
		ID:             id,
		PublicKey:      strings.TrimSpace(req.PublicKey),
		SecretKey:      strings.TrimSpace(req.SecretKey),
		WebhookEnabled: req.WebhookEnabled,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if bid, parseErr := snowflake.ParseString(id); parseErr == nil {
		_ = s.auditSvc.Record(c.Request.Context(), bid, "business.paystack.connect", "business", id, map[string]any{
			"webhook_enabled": resp.WebhookEnabled,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DisconnectPaystack(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.businessSvc.DisconnectPaystack(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if bid, parseErr := snowflake.ParseString(id); parseErr == nil {
		_ = s.auditSvc.Record(c.Request.Context(), bid, "business.paystack.disconnect", "business", id, nil)
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaystackStatus(c *gin.Context) {
	resp, err := s.businessSvc.PaystackStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
