package domain

import "errors"

var (
	ErrInvalidBusiness    = errors.New("invalid_business")
	ErrInvalidTaxRate     = errors.New("invalid_tax_rate")
	ErrInvalidTaxAmount   = errors.New("invalid_tax_amount")
	ErrInvalidTaxName     = errors.New("invalid_tax_name")
	ErrEmptyOverride      = errors.New("empty_tax_override")
	ErrOverrideNotAllowed = errors.New("tax_override_not_allowed")
)
