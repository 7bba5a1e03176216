package domain

import "errors"

var (
	ErrMissingReference     = errors.New("missing_reference")
	ErrPaymentNotSuccessful = errors.New("payment_not_successful")
	ErrAmountMismatch       = errors.New("amount_mismatch")
	ErrCurrencyMismatch     = errors.New("currency_mismatch")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrNotFound             = errors.New("not_found")
)
