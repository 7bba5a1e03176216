package domain

import "errors"

var (
	ErrInvalidBusiness = errors.New("invalid_business")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")

	// ErrInvoiceLocked rejects money edits on paid/cancelled/void
	// invoices.
	ErrInvoiceLocked = errors.New("invoice_locked")

	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrAmountExceedsDue = errors.New("amount_exceeds_balance")
	ErrAlreadyTerminal  = errors.New("invoice_already_terminal")
	ErrNotSendable      = errors.New("invoice_not_sendable")
	ErrNegativeTotal    = errors.New("negative_total")
	ErrNoItems          = errors.New("no_items")
)
