package reconcile_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	customerrepo "github.com/billora/billora/internal/customer/repository"
	customerservice "github.com/billora/billora/internal/customer/service"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	invoicerepo "github.com/billora/billora/internal/invoice/repository"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	"github.com/billora/billora/internal/payment/reconcile"
	paymentrepo "github.com/billora/billora/internal/payment/repository"
	productrepo "github.com/billora/billora/internal/product/repository"
	productservice "github.com/billora/billora/internal/product/service"
	receiptrepo "github.com/billora/billora/internal/receipt/repository"
	receiptservice "github.com/billora/billora/internal/receipt/service"

	businessrepo "github.com/billora/billora/internal/business/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type captureEmail struct {
	sent []string
}

func (c *captureEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	c.sent = append(c.sent, subject)
	return nil
}

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	engine *reconcile.Engine
	email  *captureEmail

	businessID snowflake.ID
	customerID snowflake.ID
	productID  snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(42)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	emailer := &captureEmail{}
	log := zap.NewNop()

	customerSvc := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  customerrepo.Provide(),
	})
	stock := productservice.NewStockKeeper(productservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  productrepo.Provide(),
	})
	issuer := receiptservice.NewIssuer(receiptservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Repo:         receiptrepo.Provide(),
		BusinessRepo: businessrepo.NewRepository(db),
	})

	engine := reconcile.NewEngine(reconcile.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		InvoiceRepo:   invoicerepo.Provide(),
		PaymentRepo:   paymentrepo.Provide(),
		ReceiptIssuer: issuer,
		Stock:         stock,
		CustomerSvc:   customerSvc,
		Email:         emailer,
	})

	f := &fixture{
		db:         db,
		node:       node,
		engine:     engine,
		email:      emailer,
		businessID: node.Generate(),
		customerID: node.Generate(),
		productID:  node.Generate(),
	}
	f.seed(t)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()

	if err := f.db.Exec(
		`INSERT INTO businesses (id, name, email, currency, invoice_prefix, invoice_next_number, receipt_prefix, receipt_next_number, is_active, created_at, updated_at)
		 VALUES (?, 'Lagos Fabrics', 'owner@lagosfabrics.ng', 'NGN', 'INV', 2, 'RCP', 1, TRUE, ?, ?)`,
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
	if err := f.db.Exec(
		`INSERT INTO products (id, business_id, sku, name, type, unit, cost_price, selling_price, stock_quantity, stock_reserved, stock_available, track_inventory, low_stock_threshold, is_active, created_at, updated_at)
		 VALUES (?, ?, 'ANKARA-6YD', 'Ankara 6 Yards', 'product', 'pcs', 300, 500, 10, 2, 8, TRUE, 3, TRUE, ?, ?)`,
		f.productID, f.businessID, now, now,
	).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

// seedPartialInvoice creates a sent invoice for 967.50 NGN with 500.00
// already recorded against it, so 467.50 remains due.
func (f *fixture) seedPartialInvoice(t *testing.T) *invoicedomain.Invoice {
	t.Helper()
	now := time.Now().UTC()
	sentAt := now.Add(-24 * time.Hour)
	due := now.Add(13 * 24 * time.Hour)

	invoice := &invoicedomain.Invoice{
		ID:             f.node.Generate(),
		BusinessID:     f.businessID,
		CustomerID:     f.customerID,
		InvoiceNumber:  "INV-00001",
		Slug:           "inv_73a1c09b44f2d6e8",
		Status:         invoicedomain.StatusPartial,
		Currency:       "NGN",
		DiscountType:   invoicedomain.DiscountPercentage,
		DiscountValue:  decimal.NewFromInt(10),
		DiscountAmount: decimal.NewFromInt(100),
		TaxName:        "VAT",
		TaxRate:        decimal.RequireFromString("7.5"),
		TaxAmount:      decimal.RequireFromString("67.50"),
		Subtotal:       decimal.NewFromInt(1000),
		Total:          decimal.RequireFromString("967.50"),
		AmountPaid:     decimal.NewFromInt(500),
		Balance:        decimal.RequireFromString("467.50"),
		IssueDate:      sentAt,
		DueDate:        &due,
		SentAt:         &sentAt,
		CreatedAt:      sentAt,
		UpdatedAt:      now,
		Items: []invoicedomain.InvoiceItem{{
			ID:           f.node.Generate(),
			ProductID:    f.productID,
			Description:  "Ankara 6 Yards",
			Quantity:     decimal.NewFromInt(2),
			UnitPrice:    decimal.NewFromInt(500),
			DiscountType: invoicedomain.DiscountFixed,
			LineSubtotal: decimal.NewFromInt(1000),
			LineTotal:    decimal.NewFromInt(1000),
			CreatedAt:    sentAt,
		}},
	}
	if err := invoicerepo.Provide().Insert(context.Background(), f.db, invoice); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice
}

func (f *fixture) charge(reference string, amountMinor int64) paymentdomain.VerifiedCharge {
	paidAt := time.Now().UTC()
	return paymentdomain.VerifiedCharge{
		Reference:       reference,
		Status:          "success",
		AmountMinor:     amountMinor,
		Currency:        "NGN",
		Channel:         "card",
		FeesMinor:       1000,
		GatewayResponse: "Successful",
		PaidAt:          &paidAt,
	}
}

func TestApplySettlesRemainingBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	invoice := f.seedPartialInvoice(t)

	result, err := f.engine.ApplyVerifiedPayment(ctx, f.businessID, invoice.ID, f.charge("ref_settle_1", 46750), paymentdomain.SourceWebhook)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.IsDuplicate {
		t.Fatalf("expected first delivery, got duplicate")
	}
	if got := result.Invoice.Status; got != invoicedomain.StatusPaid {
		t.Fatalf("expected status paid, got %s", got)
	}
	if !result.Invoice.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", result.Invoice.Balance)
	}
	if result.Invoice.PaidAt == nil {
		t.Fatalf("expected paid_at to be stamped")
	}
	if want := decimal.RequireFromString("467.50"); !result.Payment.Amount.Equal(want) {
		t.Fatalf("expected payment amount %s, got %s", want, result.Payment.Amount)
	}
	if want := decimal.NewFromInt(10); !result.Payment.Fees.Equal(want) {
		t.Fatalf("expected fees %s, got %s", want, result.Payment.Fees)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM receipts", 1)

	var receiptNumber string
	if err := f.db.Raw("SELECT receipt_number FROM receipts LIMIT 1").Scan(&receiptNumber).Error; err != nil {
		t.Fatalf("scan receipt_number: %v", err)
	}
	if receiptNumber != "RCP-00001" {
		t.Fatalf("expected receipt RCP-00001, got %s", receiptNumber)
	}

	// Reserved units convert to consumed stock on the paid transition.
	var quantity, reserved int64
	row := f.db.Raw("SELECT stock_quantity, stock_reserved FROM products WHERE id = ?", f.productID).Row()
	if err := row.Scan(&quantity, &reserved); err != nil {
		t.Fatalf("scan stock: %v", err)
	}
	if quantity != 8 || reserved != 0 {
		t.Fatalf("expected quantity 8 reserved 0, got %d/%d", quantity, reserved)
	}
	assertCount(t, f.db, "SELECT COUNT(1) FROM stock_movements WHERE type = 'sale_completed'", 1)

	if len(f.email.sent) != 1 {
		t.Fatalf("expected one confirmation email, got %d", len(f.email.sent))
	}
}

func TestApplyDuplicateDeliveryIsHarmless(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	invoice := f.seedPartialInvoice(t)
	charge := f.charge("ref_dup_1", 46750)

	first, err := f.engine.ApplyVerifiedPayment(ctx, f.businessID, invoice.ID, charge, paymentdomain.SourceWebhook)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	second, err := f.engine.ApplyVerifiedPayment(ctx, f.businessID, invoice.ID, charge, paymentdomain.SourceWebhook)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if first.IsDuplicate {
		t.Fatalf("first delivery must not be a duplicate")
	}
	if !second.IsDuplicate {
		t.Fatalf("second delivery must be a duplicate")
	}
	if second.Payment.ID != first.Payment.ID {
		t.Fatalf("duplicate delivery minted a second payment")
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM receipts", 1)

	var amountPaid decimal.Decimal
	if err := f.db.Raw("SELECT amount_paid FROM invoices WHERE id = ?", invoice.ID).Scan(&amountPaid).Error; err != nil {
		t.Fatalf("scan amount_paid: %v", err)
	}
	if want := decimal.RequireFromString("967.50"); !amountPaid.Equal(want) {
		t.Fatalf("expected amount_paid %s, got %s", want, amountPaid)
	}

	if len(f.email.sent) != 1 {
		t.Fatalf("expected exactly one confirmation email, got %d", len(f.email.sent))
	}
}

func TestApplyAmountMismatchLeavesInvoiceUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	invoice := f.seedPartialInvoice(t)

	_, err := f.engine.ApplyVerifiedPayment(ctx, f.businessID, invoice.ID, f.charge("ref_bad_1", 10000), paymentdomain.SourceWebhook)
	if err != paymentdomain.ErrAmountMismatch {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 0)
	assertCount(t, f.db, "SELECT COUNT(1) FROM receipts", 0)

	var status string
	if err := f.db.Raw("SELECT status FROM invoices WHERE id = ?", invoice.ID).Scan(&status).Error; err != nil {
		t.Fatalf("scan status: %v", err)
	}
	if status != string(invoicedomain.StatusPartial) {
		t.Fatalf("expected status partial, got %s", status)
	}
	if len(f.email.sent) != 0 {
		t.Fatalf("expected no email, got %d", len(f.email.sent))
	}
}

func TestApplyCurrencyMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	invoice := f.seedPartialInvoice(t)

	charge := f.charge("ref_usd_1", 46750)
	charge.Currency = "USD"

	_, err := f.engine.ApplyVerifiedPayment(ctx, f.businessID, invoice.ID, charge, paymentdomain.SourceRedirect)
	if err != paymentdomain.ErrCurrencyMismatch {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 0)
}

func TestApplyRejectsUnusableCharges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	invoice := f.seedPartialInvoice(t)

	_, err := f.engine.ApplyVerifiedPayment(ctx, f.businessID, invoice.ID, paymentdomain.VerifiedCharge{Status: "success"}, paymentdomain.SourceManual)
	if err != paymentdomain.ErrMissingReference {
		t.Fatalf("expected ErrMissingReference, got %v", err)
	}

	failed := f.charge("ref_failed_1", 46750)
	failed.Status = "failed"
	_, err = f.engine.ApplyVerifiedPayment(ctx, f.businessID, invoice.ID, failed, paymentdomain.SourceManual)
	if err != paymentdomain.ErrPaymentNotSuccessful {
		t.Fatalf("expected ErrPaymentNotSuccessful, got %v", err)
	}
	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 0)
}

func assertCount(t *testing.T, db *gorm.DB, query string, want int64) {
	t.Helper()
	var got int64
	if err := db.Raw(query).Scan(&got).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected %d rows from %q, got %d", want, query, got)
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		`CREATE TABLE products (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			sku TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			type TEXT NOT NULL DEFAULT 'product',
			unit TEXT NOT NULL DEFAULT 'pcs',
			cost_price DECIMAL(18,4) NOT NULL DEFAULT 0,
			selling_price DECIMAL(18,4) NOT NULL,
			stock_quantity BIGINT NOT NULL DEFAULT 0,
			stock_reserved BIGINT NOT NULL DEFAULT 0,
			stock_available BIGINT NOT NULL DEFAULT 0,
			track_inventory BOOLEAN NOT NULL DEFAULT TRUE,
			low_stock_threshold BIGINT NOT NULL DEFAULT 10,
			attributes TEXT NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_products_sku ON products(business_id, sku)`,
		`CREATE TABLE stock_movements (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			type TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			reference TEXT,
			notes TEXT,
			previous_available BIGINT NOT NULL DEFAULT 0,
			new_available BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
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
		`CREATE UNIQUE INDEX ux_invoices_number ON invoices(business_id, invoice_number)`,
		`CREATE UNIQUE INDEX ux_invoices_slug ON invoices(slug)`,
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
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			customer_id BIGINT NOT NULL,
			invoice_id BIGINT NOT NULL,
			gateway TEXT NOT NULL,
			payment_reference TEXT NOT NULL,
			amount DECIMAL(18,4) NOT NULL,
			currency TEXT NOT NULL,
			method TEXT NOT NULL,
			status TEXT NOT NULL,
			channel TEXT,
			fees DECIMAL(18,4) NOT NULL DEFAULT 0,
			gateway_response TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			paid_at DATETIME,
			verified_at DATETIME,
			notes TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payments_reference ON payments(invoice_id, gateway, payment_reference)`,
		`CREATE TABLE receipts (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			customer_id BIGINT NOT NULL,
			invoice_id BIGINT NOT NULL,
			receipt_number TEXT NOT NULL,
			invoice_number TEXT NOT NULL,
			currency TEXT NOT NULL,
			items TEXT NOT NULL,
			subtotal DECIMAL(18,4) NOT NULL,
			discount_amount DECIMAL(18,4) NOT NULL DEFAULT 0,
			tax_name TEXT,
			tax_rate DECIMAL(6,2) NOT NULL DEFAULT 0,
			tax_amount DECIMAL(18,4) NOT NULL DEFAULT 0,
			shipping DECIMAL(18,4) NOT NULL DEFAULT 0,
			total DECIMAL(18,4) NOT NULL,
			amount_paid DECIMAL(18,4) NOT NULL,
			payment_method TEXT NOT NULL,
			payment_reference TEXT,
			issued_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_receipts_invoice ON receipts(invoice_id)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}
