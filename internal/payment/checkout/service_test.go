package checkout_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	businessrepo "github.com/billora/billora/internal/business/repository"
	"github.com/billora/billora/internal/config"
	customerrepo "github.com/billora/billora/internal/customer/repository"
	customerservice "github.com/billora/billora/internal/customer/service"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	invoicerepo "github.com/billora/billora/internal/invoice/repository"
	"github.com/billora/billora/internal/payment/checkout"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  *checkout.Service

	businessID snowflake.ID
	customerID snowflake.ID
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := setupCheckoutDB(t)
	node, err := snowflake.NewNode(43)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	log := zap.NewNop()

	customerSvc := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  customerrepo.Provide(),
	})

	svc := checkout.NewService(checkout.Params{
		DB:           db,
		Log:          log,
		Cfg:          config.Config{},
		InvoiceRepo:  invoicerepo.Provide(),
		BusinessRepo: businessrepo.NewRepository(db),
		CustomerSvc:  customerSvc,
	})

	f := &checkoutFixture{
		db:         db,
		node:       node,
		svc:        svc,
		businessID: node.Generate(),
		customerID: node.Generate(),
	}
	f.seed(t)
	return f
}

func (f *checkoutFixture) seed(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()

	if err := f.db.Exec(
		`INSERT INTO businesses (id, name, email, currency, invoice_prefix, invoice_next_number, receipt_prefix, receipt_next_number, paystack_enabled, paystack_public_key, paystack_secret_sealed, is_active, created_at, updated_at)
		 VALUES (?, 'Lagos Fabrics', 'owner@lagosfabrics.ng', 'NGN', 'INV', 1, 'RCP', 1, TRUE, 'pk_test_abc', 'sealed-secret', TRUE, ?, ?)`,
		f.businessID, now, now,
	).Error; err != nil {
		t.Fatalf("seed business: %v", err)
	}
	if err := f.db.Exec(
		`INSERT INTO customers (id, business_id, name, email, total_invoiced, total_paid, outstanding_balance, created_at, updated_at)
		 VALUES (?, ?, 'Ade Balogun', 'ade@example.com', 0, 0, 0, ?, ?)`,
		f.customerID, f.businessID, now, now,
	).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func (f *checkoutFixture) seedInvoice(t *testing.T, slug string, status invoicedomain.Status, balance decimal.Decimal) *invoicedomain.Invoice {
	t.Helper()
	now := time.Now().UTC()
	total := decimal.NewFromInt(500)

	invoice := &invoicedomain.Invoice{
		ID:            f.node.Generate(),
		BusinessID:    f.businessID,
		CustomerID:    f.customerID,
		InvoiceNumber: fmt.Sprintf("INV-%s", slug),
		Slug:          slug,
		Status:        status,
		Currency:      "NGN",
		DiscountType:  invoicedomain.DiscountFixed,
		Subtotal:      total,
		Total:         total,
		AmountPaid:    total.Sub(balance),
		Balance:       balance,
		IssueDate:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := invoicerepo.Provide().Insert(context.Background(), f.db, invoice); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice
}

func TestPublicInvoicePayabilityFollowsStatus(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedInvoice(t, "inv_open_1", invoicedomain.StatusSent, decimal.NewFromInt(500))
	f.seedInvoice(t, "inv_gone_1", invoicedomain.StatusCancelled, decimal.NewFromInt(500))

	open, err := f.svc.PublicInvoice(ctx, "inv_open_1")
	if err != nil {
		t.Fatalf("open invoice: %v", err)
	}
	if !open.CanPayOnline {
		t.Fatalf("expected open invoice to be payable online")
	}
	if open.PublicKey != "pk_test_abc" {
		t.Fatalf("expected public key on payable invoice, got %q", open.PublicKey)
	}
	if open.CustomerName != "Ade Balogun" {
		t.Fatalf("expected customer name, got %q", open.CustomerName)
	}

	gone, err := f.svc.PublicInvoice(ctx, "inv_gone_1")
	if err != nil {
		t.Fatalf("cancelled invoice: %v", err)
	}
	if gone.CanPayOnline {
		t.Fatalf("cancelled invoice must not be payable online")
	}
	if gone.PublicKey != "" {
		t.Fatalf("cancelled invoice must not expose the public key")
	}
}

func TestInitializeCheckoutRejectsClosedInvoices(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedInvoice(t, "inv_gone_2", invoicedomain.StatusCancelled, decimal.NewFromInt(500))
	f.seedInvoice(t, "inv_paid_2", invoicedomain.StatusPaid, decimal.Zero)

	if _, err := f.svc.InitializeCheckout(ctx, "inv_gone_2", "ade@example.com"); err != checkout.ErrNotPayable {
		t.Fatalf("expected ErrNotPayable for cancelled invoice, got %v", err)
	}
	if _, err := f.svc.InitializeCheckout(ctx, "inv_paid_2", "ade@example.com"); err != checkout.ErrNothingDue {
		t.Fatalf("expected ErrNothingDue for settled invoice, got %v", err)
	}
	if _, err := f.svc.InitializeCheckout(ctx, "inv_missing", "ade@example.com"); err != invoicedomain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown slug, got %v", err)
	}
}

func setupCheckoutDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:checkoutdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE businesses (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			currency TEXT NOT NULL DEFAULT 'USD',
			timezone_name TEXT NOT NULL DEFAULT 'UTC',
			address TEXT NOT NULL DEFAULT '{}',
			metadata TEXT NOT NULL DEFAULT '{}',
			invoice_prefix TEXT NOT NULL DEFAULT 'INV',
			invoice_next_number BIGINT NOT NULL DEFAULT 1,
			invoice_due_days INTEGER NOT NULL DEFAULT 30,
			invoice_terms TEXT,
			receipt_prefix TEXT NOT NULL DEFAULT 'RCP',
			receipt_next_number BIGINT NOT NULL DEFAULT 1,
			paystack_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			paystack_public_key TEXT,
			paystack_secret_sealed TEXT,
			paystack_secret_last4 TEXT,
			paystack_webhook_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			paystack_connected_at DATETIME,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE customers (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			currency TEXT,
			address TEXT NOT NULL DEFAULT '{}',
			metadata TEXT NOT NULL DEFAULT '{}',
			total_invoiced DECIMAL(18,4) NOT NULL DEFAULT 0,
			total_paid DECIMAL(18,4) NOT NULL DEFAULT 0,
			outstanding_balance DECIMAL(18,4) NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			customer_id BIGINT NOT NULL,
			invoice_number TEXT NOT NULL,
			slug TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			currency TEXT NOT NULL,
			discount_type TEXT NOT NULL DEFAULT 'fixed',
			discount_value DECIMAL(18,4) NOT NULL DEFAULT 0,
			discount_amount DECIMAL(18,4) NOT NULL DEFAULT 0,
			tax_name TEXT,
			tax_rate DECIMAL(6,2) NOT NULL DEFAULT 0,
			tax_amount DECIMAL(18,4) NOT NULL DEFAULT 0,
			is_tax_overridden BOOLEAN NOT NULL DEFAULT FALSE,
			shipping DECIMAL(18,4) NOT NULL DEFAULT 0,
			subtotal DECIMAL(18,4) NOT NULL DEFAULT 0,
			total DECIMAL(18,4) NOT NULL DEFAULT 0,
			amount_paid DECIMAL(18,4) NOT NULL DEFAULT 0,
			balance DECIMAL(18,4) NOT NULL DEFAULT 0,
			issue_date DATETIME NOT NULL,
			due_date DATETIME,
			sent_at DATETIME,
			viewed_at DATETIME,
			paid_at DATETIME,
			payment_confirmation_emails_sent_at DATETIME,
			notes TEXT,
			terms TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_checkout_invoices_slug ON invoices(slug)`,
		`CREATE TABLE invoice_items (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			product_id BIGINT,
			description TEXT NOT NULL,
			quantity DECIMAL(18,4) NOT NULL,
			unit_price DECIMAL(18,4) NOT NULL,
			discount_type TEXT NOT NULL DEFAULT 'fixed',
			discount_value DECIMAL(18,4) NOT NULL DEFAULT 0,
			tax_rate DECIMAL(6,2) NOT NULL DEFAULT 0,
			line_subtotal DECIMAL(18,4) NOT NULL DEFAULT 0,
			line_tax DECIMAL(18,4) NOT NULL DEFAULT 0,
			line_total DECIMAL(18,4) NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
