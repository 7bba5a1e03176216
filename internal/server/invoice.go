package server

import (
	"net/http"
	"strings"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BusinessID = businessID(c)

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.Record(c.Request.Context(), businessID(c), "invoice.create", "invoice", resp.ID.String(), map[string]any{
		"invoice_number": resp.InvoiceNumber,
		"total":          resp.Total.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status        string `form:"status"`
		CustomerID    string `form:"customer_id"`
		InvoiceNumber string `form:"invoice_number"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		BusinessID:    businessID(c),
		PageToken:     query.PageToken,
		PageSize:      int32(query.PageSize),
		Status:        invoicedomain.Status(strings.TrimSpace(query.Status)),
		CustomerID:    strings.TrimSpace(query.CustomerID),
		InvoiceNumber: strings.TrimSpace(query.InvoiceNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BusinessID = businessID(c)
	req.ID = strings.TrimSpace(c.Param("id"))

	forceUnlock, err := parseOptionalBool(c.Query("force_unlock"))
	if err != nil {
		AbortWithError(c, newValidationError("force_unlock", "invalid_force_unlock", "invalid force_unlock"))
		return
	}
	if forceUnlock != nil {
		req.ForceUnlock = *forceUnlock
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if req.ForceUnlock {
		_ = s.auditSvc.Record(c.Request.Context(), businessID(c), "invoice.force_unlock_edit", "invoice", resp.ID.String(), map[string]any{
			"invoice_number": resp.InvoiceNumber,
			"total":          resp.Total.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Send(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.Record(c.Request.Context(), businessID(c), "invoice.send", "invoice", resp.ID.String(), map[string]any{
		"invoice_number": resp.InvoiceNumber,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Cancel(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.Record(c.Request.Context(), businessID(c), "invoice.cancel", "invoice", resp.ID.String(), map[string]any{
		"invoice_number": resp.InvoiceNumber,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordInvoicePayment(c *gin.Context) {
	var req invoicedomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BusinessID = businessID(c)
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.RecordManualPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.Record(c.Request.Context(), businessID(c), "invoice.record_payment", "invoice", resp.ID.String(), map[string]any{
		"invoice_number": resp.InvoiceNumber,
		"amount":         req.Amount.String(),
		"method":         req.Method,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentRepo.ListByInvoice(c.Request.Context(), s.db, invoice.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"payments": payments}})
}

type verifyPaymentRequest struct {
	Reference string `json:"reference"`
}

func (s *Server) VerifyInvoicePayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.VerifyManual(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")), req.Reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.Record(c.Request.Context(), businessID(c), "payment.verify", "invoice", strings.TrimSpace(c.Param("id")), map[string]any{
		"reference": resp.Reference,
		"duplicate": resp.Duplicate,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
