package server

import (
	"io"
	"net/http"

	"github.com/billora/billora/internal/payment/gateway/paystack"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandlePaystackWebhook settles charge.success deliveries. Anything
// that cannot be tied to an invoice is acknowledged with 200 so
// Paystack stops retrying it; only signature failures are rejected.
func (s *Server) HandlePaystackWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := c.GetHeader(paystack.SignatureHeader)

	outcome, err := s.checkoutSvc.HandleWebhook(c.Request.Context(), rawBody, signature)
	if err != nil {
		s.log.Warn("paystack webhook rejected", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	if outcome.Ignored != "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": outcome.Ignored})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
