package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListReceipts(c *gin.Context) {
	receipts, err := s.receiptSvc.List(c.Request.Context(), businessID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"receipts": receipts}})
}

func (s *Server) GetReceiptByID(c *gin.Context) {
	resp, err := s.receiptSvc.GetByID(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReceiptByInvoice(c *gin.Context) {
	resp, err := s.receiptSvc.GetByInvoice(c.Request.Context(), businessID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
