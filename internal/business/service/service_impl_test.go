package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	businessdomain "github.com/billora/billora/internal/business/domain"
	businessrepo "github.com/billora/billora/internal/business/repository"
	"github.com/billora/billora/internal/secrets"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(44)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return newService(serviceParams{
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    businessrepo.NewRepository(db),
		Secrets: secrets.NewBox("0123456789abcdef0123456789abcdef"),
	})
}

func TestCreateAppliesTenantDefaults(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	resp, err := svc.Create(ctx, businessdomain.CreateRequest{
		Name:  "  Lagos Fabrics  ",
		Email: "owner@lagosfabrics.ng",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := snowflake.ParseString(resp.ID); err != nil {
		t.Fatalf("expected a snowflake id, got %q", resp.ID)
	}
	if resp.Name != "Lagos Fabrics" {
		t.Fatalf("expected trimmed name, got %q", resp.Name)
	}
	if resp.Currency != "USD" {
		t.Fatalf("expected default currency USD, got %q", resp.Currency)
	}
	if resp.TimezoneName != "UTC" {
		t.Fatalf("expected default timezone UTC, got %q", resp.TimezoneName)
	}
	if resp.InvoicePrefix != "INV" || resp.ReceiptPrefix != "RCP" {
		t.Fatalf("expected default prefixes INV/RCP, got %q/%q", resp.InvoicePrefix, resp.ReceiptPrefix)
	}
	if resp.InvoiceNextNumber != 1 {
		t.Fatalf("expected counter to start at 1, got %d", resp.InvoiceNextNumber)
	}
	if resp.InvoiceDueDays != 30 {
		t.Fatalf("expected default due days 30, got %d", resp.InvoiceDueDays)
	}
	if !resp.IsActive {
		t.Fatalf("expected new business to be active")
	}

	found, err := svc.Get(ctx, resp.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found.ID != resp.ID || found.Name != resp.Name {
		t.Fatalf("expected get to return the created business, got %+v", found)
	}
}

func TestUpdateEditsOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.Create(ctx, businessdomain.CreateRequest{
		Name:     "Lagos Fabrics",
		Email:    "owner@lagosfabrics.ng",
		Currency: "ngn",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Currency != "NGN" {
		t.Fatalf("expected currency upcased, got %q", created.Currency)
	}

	terms := "Payment due within 7 days"
	dueDays := 7
	updated, err := svc.Update(ctx, businessdomain.UpdateRequest{
		ID:             created.ID,
		InvoiceTerms:   &terms,
		InvoiceDueDays: &dueDays,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.InvoiceTerms != terms {
		t.Fatalf("expected terms %q, got %q", terms, updated.InvoiceTerms)
	}
	if updated.InvoiceDueDays != 7 {
		t.Fatalf("expected due days 7, got %d", updated.InvoiceDueDays)
	}
	if updated.Name != created.Name || updated.Currency != created.Currency {
		t.Fatalf("untouched fields must survive the update, got %+v", updated)
	}

	if _, err := svc.Update(ctx, businessdomain.UpdateRequest{ID: "not-a-snowflake"}); err != businessdomain.ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestConnectPaystackMasksSecret(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.Create(ctx, businessdomain.CreateRequest{
		Name:  "Lagos Fabrics",
		Email: "owner@lagosfabrics.ng",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status, err := svc.ConnectPaystack(ctx, businessdomain.ConnectPaystackRequest{
		ID:        created.ID,
		PublicKey: "pk_test_abc",
		SecretKey: "sk_test_1234567890wxyz",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !status.Enabled {
		t.Fatalf("expected gateway enabled after connect")
	}
	if status.SecretKeyMasked != "********wxyz" {
		t.Fatalf("expected masked secret, got %q", status.SecretKeyMasked)
	}
	if status.ConnectedAt == nil {
		t.Fatalf("expected connected_at to be stamped")
	}

	if _, err := svc.ConnectPaystack(ctx, businessdomain.ConnectPaystackRequest{
		ID:        created.ID,
		SecretKey: "whsec_not_a_paystack_key",
	}); err != businessdomain.ErrInvalidSecretKey {
		t.Fatalf("expected ErrInvalidSecretKey, got %v", err)
	}

	after, err := svc.DisconnectPaystack(ctx, created.ID)
	if err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if after.Enabled || after.SecretKeyMasked != "" || after.ConnectedAt != nil {
		t.Fatalf("expected gateway cleared after disconnect, got %+v", after)
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:bizdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.Exec(`CREATE TABLE businesses (
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
	)`).Error; err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
