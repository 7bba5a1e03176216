package server

import (
	"net/http"

	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetTaxSettings(c *gin.Context) {
	resp, err := s.taxSvc.Get(c.Request.Context(), businessID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTaxSettings(c *gin.Context) {
	var req taxdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taxSvc.Update(c.Request.Context(), businessID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.Record(c.Request.Context(), businessID(c), "tax_settings.update", "tax_settings", resp.ID, map[string]any{
		"enabled": resp.Enabled,
		"rate":    resp.Rate.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
