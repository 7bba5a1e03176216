package domain

import (
	"context"
	"errors"
	"time"

	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type ListCustomerRequest struct {
	BusinessID  snowflake.ID
	PageToken   string
	PageSize    int32
	Name        string
	Email       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Name        string
	Email       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	BusinessID snowflake.ID
	Name       string
	Email      string
	Phone      string
}

type UpdateCustomerRequest struct {
	BusinessID snowflake.ID
	ID         string
	Name       *string
	Email      *string
	Phone      *string
}

type GetCustomerRequest struct {
	BusinessID snowflake.ID
	ID         string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)

	// RefreshStats is called after payment activity; failures are logged
	// and never surfaced to the caller.
	RefreshStats(ctx context.Context, businessID, id snowflake.ID)
}

var (
	ErrInvalidBusiness = errors.New("invalid_business")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
