package domain

import "errors"

var (
	ErrInvalidBusiness      = errors.New("invalid_business")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrInvalidID            = errors.New("invalid_id")
	ErrNotFound             = errors.New("not_found")
	ErrGatewayNotConfigured = errors.New("gateway_not_configured")
	ErrGatewayDisabled      = errors.New("gateway_disabled")
	ErrInvalidSecretKey     = errors.New("invalid_secret_key")
)
