package repository

import (
	"context"

	"github.com/billora/billora/internal/customer/domain"
	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (
			id, business_id, name, email, phone, currency, address, metadata,
			total_invoiced, total_paid, outstanding_balance, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.BusinessID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Currency,
		customer.Address,
		customer.Metadata,
		customer.TotalInvoiced,
		customer.TotalPaid,
		customer.OutstandingBalance,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, business_id, name, email, phone, currency, address, metadata,
		        total_invoiced, total_paid, outstanding_balance, created_at, updated_at
		 FROM customers WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("business_id = ?", businessID)

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.ID != "" {
			stmt = stmt.Where("id < ?", cursor.ID)
		}
	}

	// One extra row signals another page.
	err := stmt.
		Order("id desc").
		Limit(page.Limit() + 1).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, email = ?, phone = ?, address = ?, metadata = ?, updated_at = ?
		 WHERE business_id = ? AND id = ?`,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.Metadata,
		customer.UpdatedAt,
		customer.BusinessID,
		customer.ID,
	).Error
}

func (r *repo) RefreshStats(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers SET
			total_invoiced = COALESCE((
				SELECT SUM(total) FROM invoices
				WHERE business_id = ? AND customer_id = ? AND status NOT IN ('cancelled', 'void')
			), 0),
			total_paid = COALESCE((
				SELECT SUM(amount_paid) FROM invoices
				WHERE business_id = ? AND customer_id = ? AND status NOT IN ('cancelled', 'void')
			), 0),
			outstanding_balance = COALESCE((
				SELECT SUM(balance) FROM invoices
				WHERE business_id = ? AND customer_id = ? AND status NOT IN ('cancelled', 'void')
			), 0)
		 WHERE business_id = ? AND id = ?`,
		businessID, id,
		businessID, id,
		businessID, id,
		businessID, id,
	).Error
}
