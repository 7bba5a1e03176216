package server

import (
	"errors"
	"net/http"

	businessdomain "github.com/billora/billora/internal/business/domain"
	customerdomain "github.com/billora/billora/internal/customer/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/payment/checkout"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	"github.com/billora/billora/internal/payment/gateway/paystack"
	productdomain "github.com/billora/billora/internal/product/domain"
	receiptdomain "github.com/billora/billora/internal/receipt/domain"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/billora/billora/pkg/validation"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string                  `json:"type"`
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return validation.New("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return validation.New(field, code, message)
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []validation.FieldError{
				{Code: code, Message: "invalid value"},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, taxdomain.ErrOverrideNotAllowed):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, businessdomain.ErrGatewayNotConfigured),
		errors.Is(err, paystack.ErrSecretKeyMissing):
		// Tenant misconfiguration, not payer input.
		return http.StatusInternalServerError, errorPayload{
			Type:    "configuration_error",
			Message: "online payments are not configured",
		}
	case errors.Is(err, paystack.ErrGatewayFailure):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_error",
			Message: "payment gateway error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *validation.Errors {
	var vErr *validation.Errors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidBusiness),
		errors.Is(err, invoicedomain.ErrInvalidCustomer),
		errors.Is(err, invoicedomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrAmountExceedsDue),
		errors.Is(err, invoicedomain.ErrNoItems),
		errors.Is(err, invoicedomain.ErrNegativeTotal),
		errors.Is(err, invoicedomain.ErrNotSendable),
		errors.Is(err, paymentdomain.ErrMissingReference),
		errors.Is(err, paymentdomain.ErrPaymentNotSuccessful),
		errors.Is(err, paymentdomain.ErrAmountMismatch),
		errors.Is(err, paymentdomain.ErrCurrencyMismatch),
		errors.Is(err, checkout.ErrNotPayable),
		errors.Is(err, checkout.ErrNothingDue),
		errors.Is(err, checkout.ErrMissingEmail),
		errors.Is(err, checkout.ErrUnknownReference),
		errors.Is(err, businessdomain.ErrInvalidSecretKey),
		errors.Is(err, businessdomain.ErrGatewayDisabled),
		errors.Is(err, taxdomain.ErrInvalidTaxRate),
		errors.Is(err, taxdomain.ErrInvalidTaxAmount),
		errors.Is(err, taxdomain.ErrInvalidTaxName),
		errors.Is(err, taxdomain.ErrEmptyOverride),
		errors.Is(err, receiptdomain.ErrInvalidID),
		errors.Is(err, receiptdomain.ErrInvalidBusiness):
		return true
	case isBusinessValidationError(err),
		isCustomerValidationError(err),
		isProductValidationError(err):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, invoicedomain.ErrInvoiceLocked),
		errors.Is(err, invoicedomain.ErrAlreadyTerminal),
		errors.Is(err, productdomain.ErrDuplicateSKU),
		errors.Is(err, productdomain.ErrInsufficientStock):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, businessdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, receiptdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isBusinessValidationError(err error) bool {
	switch err {
	case businessdomain.ErrInvalidName,
		businessdomain.ErrInvalidEmail,
		businessdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isCustomerValidationError(err error) bool {
	switch err {
	case customerdomain.ErrInvalidBusiness,
		customerdomain.ErrInvalidName,
		customerdomain.ErrInvalidEmail,
		customerdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isProductValidationError(err error) bool {
	switch err {
	case productdomain.ErrInvalidBusiness,
		productdomain.ErrInvalidID,
		productdomain.ErrInvalidSKU,
		productdomain.ErrInvalidName,
		productdomain.ErrInvalidPrice:
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger a stable (type, code)
// pair without leaking internals.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "server_error", payload.Type
	case status >= 400:
		return "client_error", payload.Type
	default:
		return "none", ""
	}
}
