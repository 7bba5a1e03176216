package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) GetPublicInvoice(c *gin.Context) {
	resp, err := s.checkoutSvc.PublicInvoice(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type initializePaymentRequest struct {
	Email string `json:"email"`
}

func (s *Server) InitializePublicPayment(c *gin.Context) {
	var req initializePaymentRequest
	// An empty body is fine; the customer's stored email is used then.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.checkoutSvc.InitializeCheckout(c.Request.Context(), strings.TrimSpace(c.Param("slug")), req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// RedirectToCheckout is the link-friendly variant of initialize: the
// payer lands here from an email and is bounced straight to the hosted
// Paystack page.
func (s *Server) RedirectToCheckout(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))

	session, err := s.checkoutSvc.InitializeCheckout(c.Request.Context(), slug, c.Query("email"))
	if err != nil {
		s.log.Warn("checkout redirect failed", zap.String("slug", slug), zap.Error(err))
		if s.cfg.FrontendBaseURL != "" {
			c.Redirect(http.StatusFound, s.payPageURL(slug, sanitizeReason(err.Error())))
			return
		}
		AbortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, session.AuthorizationURL)
}

// VerifyPublicPayment is the Paystack callback target. Paystack sends
// the payer back with reference (and trxref) query params.
func (s *Server) VerifyPublicPayment(c *gin.Context) {
	reference := strings.TrimSpace(c.Query("reference"))
	if reference == "" {
		reference = strings.TrimSpace(c.Query("trxref"))
	}

	outcome, err := s.checkoutSvc.VerifyRedirect(c.Request.Context(), reference)
	if err != nil {
		s.log.Warn("redirect verification failed", zap.String("reference", reference), zap.Error(err))
		if s.cfg.FrontendBaseURL != "" {
			c.Redirect(http.StatusFound, s.resultPageURL("", "failed", sanitizeReason(err.Error())))
			return
		}
		AbortWithError(c, err)
		return
	}

	if s.cfg.FrontendBaseURL != "" {
		c.Redirect(http.StatusFound, s.resultPageURL(outcome.InvoiceSlug, "success", ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": outcome})
}

func (s *Server) payPageURL(slug, reason string) string {
	query := url.Values{}
	if reason != "" {
		query.Set("error", reason)
	}
	target := s.cfg.FrontendBaseURL + "/pay/" + url.PathEscape(slug)
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}

func (s *Server) resultPageURL(slug, status, reason string) string {
	query := url.Values{}
	query.Set("status", status)
	if slug != "" {
		query.Set("invoice", slug)
	}
	if reason != "" {
		query.Set("reason", reason)
	}
	return s.cfg.FrontendBaseURL + "/payments/result?" + query.Encode()
}

// sanitizeReason keeps redirect query strings free of anything the
// gateway error might carry back.
func sanitizeReason(reason string) string {
	var b strings.Builder
	for _, r := range reason {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if len(cleaned) > 120 {
		cleaned = cleaned[:120]
	}
	return cleaned
}
