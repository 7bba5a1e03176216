// Package reconcile applies verified gateway charges to invoices. Every
// entry point that settles money — webhook, redirect verify, manual
// verification — converges on the engine so idempotency lives in one
// place.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	customerdomain "github.com/billora/billora/internal/customer/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/money"
	"github.com/billora/billora/internal/observability/metrics"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	productdomain "github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/internal/providers/email"
	receiptdomain "github.com/billora/billora/internal/receipt/domain"
	"github.com/billora/billora/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Result reports what one delivery did to the invoice.
type Result struct {
	Invoice     *invoicedomain.Invoice
	Payment     *paymentdomain.Payment
	IsDuplicate bool
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node

	InvoiceRepo   invoicedomain.Repository
	PaymentRepo   paymentdomain.Repository
	ReceiptIssuer receiptdomain.Issuer
	Stock         productdomain.StockKeeper
	CustomerSvc   customerdomain.Service
	Email         email.Provider
	Metrics       *metrics.Metrics
}

type Engine struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	invoiceRepo   invoicedomain.Repository
	paymentRepo   paymentdomain.Repository
	receiptIssuer receiptdomain.Issuer
	stock         productdomain.StockKeeper
	customerSvc   customerdomain.Service
	email         email.Provider
	metrics       *metrics.Metrics
}

func NewEngine(p Params) *Engine {
	return &Engine{
		db:    p.DB,
		log:   p.Log.Named("payment.reconcile"),
		genID: p.GenID,

		invoiceRepo:   p.InvoiceRepo,
		paymentRepo:   p.PaymentRepo,
		receiptIssuer: p.ReceiptIssuer,
		stock:         p.Stock,
		customerSvc:   p.CustomerSvc,
		email:         p.Email,
		metrics:       p.Metrics,
	}
}

// ApplyVerifiedPayment settles one verified charge against an invoice.
// The invoice row is locked for the duration, so concurrent deliveries
// of the same reference serialize; whichever loses the insert race is
// rerouted onto the duplicate path.
func (e *Engine) ApplyVerifiedPayment(ctx context.Context, businessID, invoiceID snowflake.ID, charge paymentdomain.VerifiedCharge, source string) (Result, error) {
	charge.Reference = strings.TrimSpace(charge.Reference)
	if charge.Reference == "" {
		return Result{}, paymentdomain.ErrMissingReference
	}
	if !charge.Successful() {
		return Result{}, paymentdomain.ErrPaymentNotSuccessful
	}

	var (
		result  Result
		pending sideEffects
	)

	run := func() error {
		result = Result{}
		pending = sideEffects{}
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return e.applyLocked(ctx, tx, businessID, invoiceID, charge, source, &result, &pending)
		})
	}

	err := run()
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Lost the insert race to a concurrent delivery. The reference
		// is now durably recorded, so the retry lands on the duplicate
		// path.
		e.log.Info("payment insert conflict, retrying as duplicate",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("reference", charge.Reference),
		)
		err = run()
	}
	if err != nil {
		return Result{}, err
	}

	e.metrics.RecordPaymentEvent(paymentdomain.GatewayPaystack, source, result.IsDuplicate)
	e.fireSideEffects(ctx, result.Invoice, pending)

	return result, nil
}

type sideEffects struct {
	confirmationEmail bool
	receiptIssued     bool
	refreshStats      bool
}

func (e *Engine) applyLocked(ctx context.Context, tx *gorm.DB, businessID, invoiceID snowflake.ID, charge paymentdomain.VerifiedCharge, source string, result *Result, pending *sideEffects) error {
	invoice, err := e.invoiceRepo.FindByIDForUpdate(ctx, tx, businessID, invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return paymentdomain.ErrNotFound
	}

	existing, err := e.paymentRepo.FindByReference(ctx, tx, invoice.ID, paymentdomain.GatewayPaystack, charge.Reference)
	if err != nil {
		return err
	}

	// The expected amount is the recorded payment when the reference is
	// known, otherwise the open balance.
	expectedMinor := money.ToMinorUnits(invoice.Balance)
	if existing != nil {
		expectedMinor = money.ToMinorUnits(existing.Amount)
	}

	if charge.Currency != "" && !strings.EqualFold(charge.Currency, invoice.Currency) {
		return paymentdomain.ErrCurrencyMismatch
	}
	if charge.AmountMinor != expectedMinor {
		e.log.Warn("verified amount does not match expectation",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("reference", charge.Reference),
			zap.Int64("expected_minor", expectedMinor),
			zap.Int64("got_minor", charge.AmountMinor),
		)
		return paymentdomain.ErrAmountMismatch
	}

	now := time.Now().UTC()

	if existing != nil {
		// Duplicate delivery: never a second payment, never a balance
		// change. Verification metadata is backfilled once.
		if existing.VerifiedAt == nil {
			e.stampVerification(existing, charge, now)
			if err := e.paymentRepo.Update(ctx, tx, existing); err != nil {
				return err
			}
		}
		if invoice.Status == invoicedomain.StatusPaid && invoice.PaymentConfirmationEmailsSentAt == nil {
			invoice.PaymentConfirmationEmailsSentAt = &now
			invoice.UpdatedAt = now
			if err := e.invoiceRepo.Update(ctx, tx, invoice); err != nil {
				return err
			}
			pending.confirmationEmail = true
		}

		result.Invoice = invoice
		result.Payment = existing
		result.IsDuplicate = true
		return nil
	}

	applied := money.Min(invoice.Balance, money.FromMinorUnits(charge.AmountMinor))

	payment := &paymentdomain.Payment{
		ID:         e.genID.Generate(),
		BusinessID: invoice.BusinessID,
		CustomerID: invoice.CustomerID,
		InvoiceID:  invoice.ID,
		Gateway:    paymentdomain.GatewayPaystack,
		Reference:  charge.Reference,
		Amount:     applied,
		Currency:   invoice.Currency,
		Method:     paymentdomain.GatewayPaystack,
		Status:     charge.Status,
		Metadata:   datatypes.JSONMap{"source": source},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	e.stampVerification(payment, charge, now)
	if err := e.paymentRepo.Insert(ctx, tx, payment); err != nil {
		return err
	}

	transitionedToPaid := invoice.RecordPayment(applied, now)
	if transitionedToPaid {
		if _, err := e.receiptIssuer.EnsureForInvoice(ctx, tx, invoice, paymentdomain.GatewayPaystack, charge.Reference); err != nil {
			return err
		}
		pending.receiptIssued = true

		if invoice.SentAt != nil {
			if err := e.stock.CompleteSale(ctx, tx, invoice.BusinessID, stockLines(invoice), "Invoice Paid: "+invoice.InvoiceNumber); err != nil {
				return err
			}
		}
	}

	if invoice.Status == invoicedomain.StatusPaid && invoice.PaymentConfirmationEmailsSentAt == nil {
		invoice.PaymentConfirmationEmailsSentAt = &now
		pending.confirmationEmail = true
	}

	if err := e.invoiceRepo.Update(ctx, tx, invoice); err != nil {
		return err
	}

	pending.refreshStats = true
	result.Invoice = invoice
	result.Payment = payment
	return nil
}

func (e *Engine) stampVerification(payment *paymentdomain.Payment, charge paymentdomain.VerifiedCharge, now time.Time) {
	payment.Status = charge.Status
	payment.Channel = charge.Channel
	payment.Fees = money.FromMinorUnits(charge.FeesMinor)
	payment.GatewayResponse = charge.GatewayResponse
	payment.VerifiedAt = &now
	payment.UpdatedAt = now
	if charge.PaidAt != nil {
		payment.PaidAt = charge.PaidAt
	} else if payment.PaidAt == nil {
		payment.PaidAt = &now
	}
	if len(charge.Raw) > 0 {
		if payment.Metadata == nil {
			payment.Metadata = datatypes.JSONMap{}
		}
		payment.Metadata["gateway_data"] = map[string]any(charge.Raw)
	}
}

// fireSideEffects runs after the transaction commits. All of it is
// best-effort: the money is already settled.
func (e *Engine) fireSideEffects(ctx context.Context, invoice *invoicedomain.Invoice, pending sideEffects) {
	if invoice == nil {
		return
	}

	if pending.receiptIssued {
		e.metrics.RecordReceiptIssued()
	}
	if pending.refreshStats {
		e.customerSvc.RefreshStats(ctx, invoice.BusinessID, invoice.CustomerID)
	}
	if pending.confirmationEmail {
		e.sendConfirmationEmail(ctx, invoice)
	}
}

func (e *Engine) sendConfirmationEmail(ctx context.Context, invoice *invoicedomain.Invoice) {
	customer, err := e.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{
		BusinessID: invoice.BusinessID,
		ID:         invoice.CustomerID.String(),
	})
	if err != nil || customer.Email == "" {
		return
	}

	subject := fmt.Sprintf("Payment received for invoice %s", invoice.InvoiceNumber)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>We received your payment for invoice <strong>%s</strong>. Thank you.</p>",
		customer.Name, invoice.InvoiceNumber,
	)
	if err := e.email.Send(ctx, []string{customer.Email}, subject, body); err != nil {
		e.log.Warn("payment confirmation email failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func stockLines(invoice *invoicedomain.Invoice) []productdomain.StockLine {
	lines := make([]productdomain.StockLine, 0, len(invoice.Items))
	for _, line := range invoice.StockLines() {
		lines = append(lines, productdomain.StockLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	return lines
}
