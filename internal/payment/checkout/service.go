// Package checkout drives the hosted Paystack payment flow for public
// invoices: initialize a transaction for the open balance, then verify
// and settle it from whichever delivery arrives first.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	businessdomain "github.com/billora/billora/internal/business/domain"
	"github.com/billora/billora/internal/config"
	customerdomain "github.com/billora/billora/internal/customer/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/money"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	"github.com/billora/billora/internal/payment/gateway/paystack"
	"github.com/billora/billora/internal/payment/reconcile"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotPayable       = errors.New("invoice_not_payable")
	ErrNothingDue       = errors.New("invoice_has_no_balance")
	ErrMissingEmail     = errors.New("customer_email_required")
	ErrUnknownReference = errors.New("unknown_payment_reference")
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config

	InvoiceRepo  invoicedomain.Repository
	BusinessRepo businessdomain.Repository
	Credentials  businessdomain.CredentialsProvider
	CustomerSvc  customerdomain.Service
	Gateway      *paystack.Client
	Engine       *reconcile.Engine
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	cfg config.Config

	invoiceRepo  invoicedomain.Repository
	businessRepo businessdomain.Repository
	credentials  businessdomain.CredentialsProvider
	customerSvc  customerdomain.Service
	gateway      *paystack.Client
	engine       *reconcile.Engine
}

func NewService(p Params) *Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("payment.checkout"),
		cfg: p.Cfg,

		invoiceRepo:  p.InvoiceRepo,
		businessRepo: p.BusinessRepo,
		credentials:  p.Credentials,
		customerSvc:  p.CustomerSvc,
		gateway:      p.Gateway,
		engine:       p.Engine,
	}
}

// Session is what the payment page needs to hand the payer to Paystack.
type Session struct {
	Provider         string          `json:"provider"`
	PublicKey        string          `json:"public_key"`
	AuthorizationURL string          `json:"authorization_url"`
	AccessCode       string          `json:"access_code"`
	Reference        string          `json:"reference"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

// PublicInvoice is the unauthenticated payment-page view of an invoice.
type PublicInvoice struct {
	Slug          string          `json:"slug"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Notes         string          `json:"notes,omitempty"`

	CustomerName  string `json:"customer_name"`
	BusinessName  string `json:"business_name"`
	BusinessEmail string `json:"business_email"`

	CanPayOnline bool   `json:"can_pay_online"`
	PublicKey    string `json:"public_key,omitempty"`
}

// VerifyOutcome is what redirect and manual verification report back.
type VerifyOutcome struct {
	InvoiceSlug   string `json:"invoice_slug"`
	InvoiceNumber string `json:"invoice_number"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	Duplicate     bool   `json:"duplicate"`
}

// PublicInvoice loads the payment-page view for a public slug.
func (s *Service) PublicInvoice(ctx context.Context, slug string) (*PublicInvoice, error) {
	invoice, err := s.invoiceRepo.FindBySlug(ctx, s.db, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}

	business, err := s.businessRepo.FindByID(ctx, invoice.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, invoicedomain.ErrInvalidBusiness
	}

	customerName := ""
	if customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{
		BusinessID: invoice.BusinessID,
		ID:         invoice.CustomerID.String(),
	}); err == nil {
		customerName = customer.Name
	}

	canPay := !invoice.Status.Terminal() &&
		invoice.Balance.IsPositive() &&
		business.PaystackEnabled &&
		business.PaystackPublicKey != "" &&
		business.PaystackSecretSealed != ""

	view := &PublicInvoice{
		Slug:          invoice.Slug,
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        string(invoice.Status),
		Currency:      invoice.Currency,
		Total:         invoice.Total,
		AmountDue:     invoice.Balance,
		IssueDate:     invoice.IssueDate,
		DueDate:       invoice.DueDate,
		Notes:         invoice.Notes,
		CustomerName:  customerName,
		BusinessName:  business.Name,
		BusinessEmail: business.Email,
		CanPayOnline:  canPay,
	}
	if canPay {
		view.PublicKey = business.PaystackPublicKey
	}
	return view, nil
}

// InitializeCheckout starts a hosted Paystack transaction for the open
// balance of a public invoice.
func (s *Service) InitializeCheckout(ctx context.Context, slug, payerEmail string) (*Session, error) {
	invoice, err := s.invoiceRepo.FindBySlug(ctx, s.db, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	if invoice.Status.Terminal() {
		return nil, ErrNotPayable
	}
	if !invoice.Balance.IsPositive() {
		return nil, ErrNothingDue
	}

	creds, err := s.credentials.Credentials(ctx, invoice.BusinessID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(payerEmail)
	if email == "" {
		customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{
			BusinessID: invoice.BusinessID,
			ID:         invoice.CustomerID.String(),
		})
		if err == nil {
			email = strings.TrimSpace(customer.Email)
		}
	}
	if email == "" {
		return nil, ErrMissingEmail
	}

	reference := NewReference(invoice.ID)
	payload := paystack.InitializePayload{
		Email:       email,
		AmountMinor: money.ToMinorUnits(invoice.Balance),
		Currency:    strings.ToUpper(invoice.Currency),
		Reference:   reference,
		Metadata: map[string]any{
			"type":           "invoice_payment",
			"invoice_id":     invoice.ID.String(),
			"business_id":    invoice.BusinessID.String(),
			"invoice_number": invoice.InvoiceNumber,
			"slug":           invoice.Slug,
		},
	}
	if s.cfg.BackendBaseURL != "" {
		payload.CallbackURL = s.cfg.BackendBaseURL + "/api/v1/payments/verify"
	}

	result, err := s.gateway.InitializeTransaction(ctx, creds.SecretKey, payload)
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout initialized",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("reference", reference),
	)

	session := &Session{
		Provider:         paymentdomain.GatewayPaystack,
		PublicKey:        creds.PublicKey,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        reference,
		Amount:           invoice.Balance,
		Currency:         strings.ToUpper(invoice.Currency),
	}
	if result.Reference != "" {
		session.Reference = result.Reference
	}
	return session, nil
}

// VerifyRedirect settles the charge behind a Paystack redirect callback.
// The reference is the only thing the callback carries, so the invoice
// is recovered from it.
func (s *Service) VerifyRedirect(ctx context.Context, reference string) (*VerifyOutcome, error) {
	invoice, err := s.invoiceByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	creds, err := s.credentials.Credentials(ctx, invoice.BusinessID)
	if err != nil {
		return nil, err
	}

	charge, err := s.gateway.VerifyTransaction(ctx, creds.SecretKey, reference)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.ApplyVerifiedPayment(ctx, invoice.BusinessID, invoice.ID, *charge, paymentdomain.SourceRedirect)
	if err != nil {
		return nil, err
	}
	return outcome(result), nil
}

// VerifyManual re-checks a reference against the Paystack API on the
// merchant's request, typically when a webhook went missing.
func (s *Service) VerifyManual(ctx context.Context, businessID snowflake.ID, invoiceID, reference string) (*VerifyOutcome, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return nil, invoicedomain.ErrNotFound
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, businessID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, paymentdomain.ErrMissingReference
	}

	creds, err := s.credentials.Credentials(ctx, businessID)
	if err != nil {
		return nil, err
	}
	charge, err := s.gateway.VerifyTransaction(ctx, creds.SecretKey, reference)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.ApplyVerifiedPayment(ctx, businessID, invoice.ID, *charge, paymentdomain.SourceManual)
	if err != nil {
		return nil, err
	}
	return outcome(result), nil
}

// WebhookOutcome distinguishes deliveries the webhook endpoint must
// acknowledge without acting on.
type WebhookOutcome struct {
	Applied bool
	Ignored string
}

// HandleWebhook verifies and settles a Paystack webhook delivery. Events
// that cannot be tied to an invoice are reported as ignored, not failed;
// Paystack retries anything that is not acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookOutcome, error) {
	event, err := paystack.ParseWebhookEvent(rawBody)
	if err != nil {
		return &WebhookOutcome{Ignored: "malformed payload"}, nil
	}

	charge, err := paystack.ParseChargeSuccess(event.Data)
	if err != nil || charge.Reference == "" {
		return &WebhookOutcome{Ignored: "no reference in payload"}, nil
	}

	invoice, err := s.invoiceByReference(ctx, charge.Reference)
	if err != nil {
		if errors.Is(err, ErrUnknownReference) || errors.Is(err, invoicedomain.ErrNotFound) {
			return &WebhookOutcome{Ignored: "unknown reference"}, nil
		}
		return nil, err
	}

	creds, err := s.credentials.Credentials(ctx, invoice.BusinessID)
	if err != nil {
		return nil, err
	}
	if !paystack.VerifySignature(rawBody, signature, creds.SecretKey) {
		return nil, paymentdomain.ErrInvalidSignature
	}

	if event.Event != "charge.success" {
		return &WebhookOutcome{Ignored: "event ignored"}, nil
	}

	result, err := s.engine.ApplyVerifiedPayment(ctx, invoice.BusinessID, invoice.ID, *charge, paymentdomain.SourceWebhook)
	if err != nil {
		return nil, err
	}
	return &WebhookOutcome{Applied: !result.IsDuplicate}, nil
}

func (s *Service) invoiceByReference(ctx context.Context, reference string) (*invoicedomain.Invoice, error) {
	id, err := InvoiceIDFromReference(reference)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoiceRepo.FindByIDGlobal(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

func outcome(result reconcile.Result) *VerifyOutcome {
	return &VerifyOutcome{
		InvoiceSlug:   result.Invoice.Slug,
		InvoiceNumber: result.Invoice.InvoiceNumber,
		Status:        string(result.Invoice.Status),
		Reference:     result.Payment.Reference,
		Duplicate:     result.IsDuplicate,
	}
}

// NewReference builds a checkout reference that encodes the invoice, so
// callbacks can recover it without extra state.
func NewReference(invoiceID snowflake.ID) string {
	return fmt.Sprintf("inv_%s_%d", invoiceID, time.Now().UnixMilli())
}

// InvoiceIDFromReference reverses NewReference.
func InvoiceIDFromReference(reference string) (snowflake.ID, error) {
	parts := strings.Split(strings.TrimSpace(reference), "_")
	if len(parts) < 2 || parts[0] != "inv" {
		return 0, ErrUnknownReference
	}
	id, err := snowflake.ParseString(parts[1])
	if err != nil {
		return 0, ErrUnknownReference
	}
	return id, nil
}
