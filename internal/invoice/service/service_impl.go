package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/billora/billora/internal/audit/domain"
	businessdomain "github.com/billora/billora/internal/business/domain"
	customerdomain "github.com/billora/billora/internal/customer/domain"
	"github.com/billora/billora/internal/invoice/calc"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	productdomain "github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/internal/providers/email"
	receiptdomain "github.com/billora/billora/internal/receipt/domain"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/billora/billora/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node

	Repo          invoicedomain.Repository
	BusinessRepo  businessdomain.Repository
	CustomerSvc   customerdomain.Service
	TaxResolver   taxdomain.Resolver
	Stock         productdomain.StockKeeper
	ReceiptIssuer receiptdomain.Issuer
	PaymentRepo   paymentdomain.Repository
	Email         email.Provider
	AuditSvc      auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	repo          invoicedomain.Repository
	businessRepo  businessdomain.Repository
	customerSvc   customerdomain.Service
	taxResolver   taxdomain.Resolver
	stock         productdomain.StockKeeper
	receiptIssuer receiptdomain.Issuer
	paymentRepo   paymentdomain.Repository
	email         email.Provider
	auditSvc      auditdomain.Service
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		repo:          p.Repo,
		businessRepo:  p.BusinessRepo,
		customerSvc:   p.CustomerSvc,
		taxResolver:   p.TaxResolver,
		stock:         p.Stock,
		receiptIssuer: p.ReceiptIssuer,
		paymentRepo:   p.PaymentRepo,
		email:         p.Email,
		auditSvc:      p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if req.BusinessID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidBusiness
	}

	business, err := s.businessRepo.FindByID(ctx, req.BusinessID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if business == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidBusiness
	}

	customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{
		BusinessID: req.BusinessID,
		ID:         req.CustomerID,
	})
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidCustomer
	}

	taxConfig, err := s.taxResolver.Resolve(ctx, req.BusinessID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	items, err := s.buildItems(req.Items)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	taxRate, taxOverride, taxName, err := resolveTax(taxConfig, req.TaxOverride)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := time.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:         s.genID.Generate(),
		BusinessID: req.BusinessID,
		CustomerID: customer.ID,
		Slug:       newSlug(),
		Status:     invoicedomain.StatusDraft,
		Currency:   business.Currency,

		Items: items,

		DiscountType:  normalizeDiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,

		TaxName:         taxName,
		TaxRate:         taxRate,
		IsTaxOverridden: taxOverride != nil,

		Shipping:  req.Shipping,
		IssueDate: now,
		DueDate:   req.DueDate,
		Notes:     strings.TrimSpace(req.Notes),
		Terms:     strings.TrimSpace(req.Terms),
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if invoice.Terms == "" {
		invoice.Terms = business.InvoiceTerms
	}
	if invoice.DueDate == nil {
		due := now.AddDate(0, 0, business.InvoiceDueDays)
		invoice.DueDate = &due
	}

	if err := s.recalculate(&invoice, taxOverride); err != nil {
		return invoicedomain.Invoice{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.businessRepo.NextInvoiceNumber(ctx, tx, req.BusinessID)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		return s.repo.Insert(ctx, tx, &invoice)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.customerSvc.RefreshStats(ctx, invoice.BusinessID, invoice.CustomerID)
	s.audit(ctx, &invoice, "invoice.created", nil)

	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, businessID snowflake.ID, id string) (invoicedomain.Invoice, error) {
	invoice, err := s.find(ctx, businessID, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	if req.BusinessID == 0 {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidBusiness
	}

	filter := invoicedomain.ListInvoiceFilter{
		Status:        req.Status,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
	}
	if customerID := strings.TrimSpace(req.CustomerID); customerID != "" {
		parsed, err := snowflake.ParseString(customerID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidCustomer
		}
		filter.CustomerID = parsed
	}

	page := pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(req.PageSize),
	}

	items, err := s.repo.List(ctx, s.db, req.BusinessID, filter, page)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Limit(), func(invoice *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{
		PageInfo: *pageInfo,
		Invoices: invoices,
	}, nil
}

func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	invoice, err := s.find(ctx, req.BusinessID, req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	moneyEdit := len(req.Items) > 0 || req.DiscountType != nil || req.DiscountValue != nil ||
		req.Shipping != nil || req.TaxOverride != nil || req.ClearTaxOverride
	if moneyEdit && (invoice.Status == invoicedomain.StatusPaid || invoice.Status.Terminal()) && !req.ForceUnlock {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceLocked
	}

	if len(req.Items) > 0 {
		items, err := s.buildItems(req.Items)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		invoice.Items = items
	}
	if req.DiscountType != nil {
		invoice.DiscountType = normalizeDiscountType(*req.DiscountType)
	}
	if req.DiscountValue != nil {
		invoice.DiscountValue = *req.DiscountValue
	}
	if req.Shipping != nil {
		invoice.Shipping = *req.Shipping
	}
	if req.DueDate != nil {
		invoice.DueDate = req.DueDate
	}
	if req.Notes != nil {
		invoice.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Terms != nil {
		invoice.Terms = strings.TrimSpace(*req.Terms)
	}

	var taxOverride *decimal.Decimal
	switch {
	case req.ClearTaxOverride:
		invoice.IsTaxOverridden = false
	case req.TaxOverride != nil:
		taxConfig, err := s.taxResolver.Resolve(ctx, req.BusinessID)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		rate, override, name, err := resolveTax(taxConfig, req.TaxOverride)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		invoice.TaxRate = rate
		invoice.TaxName = name
		invoice.IsTaxOverridden = override != nil
		taxOverride = override
	case invoice.IsTaxOverridden:
		// Keep the stored override amount through unrelated edits.
		amount := invoice.TaxAmount
		taxOverride = &amount
	}

	if err := s.recalculate(invoice, taxOverride); err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice.UpdatedAt = time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ReplaceItems(ctx, tx, invoice.ID, invoice.Items); err != nil {
			return err
		}
		return s.repo.Update(ctx, tx, invoice)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.customerSvc.RefreshStats(ctx, invoice.BusinessID, invoice.CustomerID)
	s.audit(ctx, invoice, "invoice.updated", nil)

	return *invoice, nil
}

// Send marks the invoice sent, reserves stock for product-linked lines
// and emails the customer. The email is best-effort.
func (s *Service) Send(ctx context.Context, businessID snowflake.ID, id string) (invoicedomain.Invoice, error) {
	invoice, err := s.find(ctx, businessID, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if invoice.Status.Terminal() || invoice.Status == invoicedomain.StatusPaid {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotSendable
	}
	alreadySent := invoice.SentAt != nil

	now := time.Now().UTC()
	if invoice.SentAt == nil {
		invoice.SentAt = &now
	}
	invoice.Status = invoicedomain.NextStatus(invoicedomain.StatusSent, invoice.Balance, invoice.Total, invoice.AmountPaid, invoice.SentAt, invoice.DueDate, now)
	invoice.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		if alreadySent {
			// Re-sending must not double the reservation.
			return nil
		}
		return s.stock.ReserveForSale(ctx, tx, businessID, stockLines(invoice), "Invoice: "+invoice.InvoiceNumber)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.sendInvoiceEmail(ctx, invoice)
	s.audit(ctx, invoice, "invoice.sent", nil)

	return *invoice, nil
}

// Cancel is terminal. Reserved stock goes back to the shelf.
func (s *Service) Cancel(ctx context.Context, businessID snowflake.ID, id string) (invoicedomain.Invoice, error) {
	invoice, err := s.find(ctx, businessID, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if invoice.Status.Terminal() {
		return invoicedomain.Invoice{}, invoicedomain.ErrAlreadyTerminal
	}
	if invoice.Status == invoicedomain.StatusPaid {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceLocked
	}

	wasReserved := invoice.SentAt != nil

	now := time.Now().UTC()
	invoice.Status = invoicedomain.StatusCancelled
	invoice.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		if !wasReserved {
			return nil
		}
		return s.stock.CancelSale(ctx, tx, businessID, stockLines(invoice), "Invoice Cancelled: "+invoice.InvoiceNumber)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.customerSvc.RefreshStats(ctx, invoice.BusinessID, invoice.CustomerID)
	s.audit(ctx, invoice, "invoice.cancelled", nil)

	return *invoice, nil
}

// RecordManualPayment applies an out-of-band payment. Amounts above the
// open balance are rejected outright.
func (s *Service) RecordManualPayment(ctx context.Context, req invoicedomain.RecordPaymentRequest) (invoicedomain.Invoice, error) {
	if req.BusinessID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidBusiness
	}
	if req.Amount.Sign() <= 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidAmount
	}

	invoiceID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = "cash"
	}
	reference := strings.TrimSpace(req.Reference)

	var (
		updated            invoicedomain.Invoice
		transitionedToPaid bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, req.BusinessID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status.Terminal() || invoice.Status == invoicedomain.StatusPaid {
			return invoicedomain.ErrInvoiceLocked
		}
		if req.Amount.GreaterThan(invoice.Balance) {
			return invoicedomain.ErrAmountExceedsDue
		}

		now := time.Now().UTC()
		paymentID := s.genID.Generate()
		if reference == "" {
			// Snowflake IDs are unique per node, so back-to-back manual
			// payments never collide on the reference index.
			reference = fmt.Sprintf("man_%s_%s", invoice.ID.String(), paymentID.String())
		}

		payment := &paymentdomain.Payment{
			ID:         paymentID,
			BusinessID: invoice.BusinessID,
			CustomerID: invoice.CustomerID,
			InvoiceID:  invoice.ID,
			Gateway:    paymentdomain.GatewayManual,
			Reference:  reference,
			Amount:     req.Amount,
			Currency:   invoice.Currency,
			Method:     method,
			Status:     "success",
			Metadata:   datatypes.JSONMap{},
			PaidAt:     &now,
			Notes:      strings.TrimSpace(req.Notes),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.paymentRepo.Insert(ctx, tx, payment); err != nil {
			return err
		}

		transitionedToPaid = invoice.RecordPayment(req.Amount, now)
		if transitionedToPaid {
			if _, err := s.receiptIssuer.EnsureForInvoice(ctx, tx, invoice, method, reference); err != nil {
				return err
			}
			if invoice.SentAt != nil {
				if err := s.stock.CompleteSale(ctx, tx, invoice.BusinessID, stockLines(invoice), "Invoice Paid: "+invoice.InvoiceNumber); err != nil {
					return err
				}
			}
		}

		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}

		updated = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.customerSvc.RefreshStats(ctx, updated.BusinessID, updated.CustomerID)
	s.audit(ctx, &updated, "invoice.payment_recorded", map[string]any{
		"amount":    req.Amount.String(),
		"method":    method,
		"reference": reference,
	})

	return updated, nil
}

func (s *Service) recalculate(invoice *invoicedomain.Invoice, taxOverride *decimal.Decimal) error {
	in := calc.Input{
		DiscountType:      invoice.DiscountType,
		DiscountValue:     invoice.DiscountValue,
		TaxRate:           invoice.TaxRate,
		TaxAmountOverride: taxOverride,
		IsTaxOverridden:   invoice.IsTaxOverridden,
		Shipping:          invoice.Shipping,
		AmountPaid:        invoice.AmountPaid,
	}
	for _, item := range invoice.Items {
		in.Items = append(in.Items, calc.Item{
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			DiscountType:  item.DiscountType,
			DiscountValue: item.DiscountValue,
			TaxRate:       item.TaxRate,
		})
	}

	totals, err := calc.ComputeTotals(in)
	if err != nil {
		return err
	}

	for i := range invoice.Items {
		invoice.Items[i].LineSubtotal = totals.Items[i].LineSubtotal
		invoice.Items[i].LineTax = totals.Items[i].LineTax
		invoice.Items[i].LineTotal = totals.Items[i].LineTotal
	}
	invoice.Subtotal = totals.Subtotal
	invoice.DiscountAmount = totals.DiscountAmount
	invoice.TaxAmount = totals.TaxAmount
	invoice.Shipping = totals.Shipping
	invoice.Total = totals.Total
	invoice.AmountPaid = totals.AmountPaid
	invoice.Balance = totals.Balance
	return nil
}

func (s *Service) buildItems(reqs []invoicedomain.ItemRequest) ([]invoicedomain.InvoiceItem, error) {
	items := make([]invoicedomain.InvoiceItem, 0, len(reqs))
	for _, req := range reqs {
		item := invoicedomain.InvoiceItem{
			ID:            s.genID.Generate(),
			Description:   strings.TrimSpace(req.Description),
			Quantity:      req.Quantity,
			UnitPrice:     req.UnitPrice,
			DiscountType:  normalizeDiscountType(req.DiscountType),
			DiscountValue: req.DiscountValue,
			TaxRate:       req.TaxRate,
			CreatedAt:     time.Now().UTC(),
		}
		if productID := strings.TrimSpace(req.ProductID); productID != "" {
			parsed, err := snowflake.ParseString(productID)
			if err != nil {
				return nil, invoicedomain.ErrInvalidID
			}
			item.ProductID = parsed
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) find(ctx context.Context, businessID snowflake.ID, id string) (*invoicedomain.Invoice, error) {
	if businessID == 0 {
		return nil, invoicedomain.ErrInvalidBusiness
	}

	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, invoicedomain.ErrInvalidID
	}

	invoice, err := s.repo.FindByID(ctx, s.db, businessID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) sendInvoiceEmail(ctx context.Context, invoice *invoicedomain.Invoice) {
	customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{
		BusinessID: invoice.BusinessID,
		ID:         invoice.CustomerID.String(),
	})
	if err != nil || customer.Email == "" {
		return
	}

	subject := fmt.Sprintf("Invoice %s", invoice.InvoiceNumber)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Invoice <strong>%s</strong> for %s %s is ready.</p>",
		customer.Name, invoice.InvoiceNumber, invoice.Currency, invoice.Total.StringFixed(2),
	)
	if err := s.email.Send(ctx, []string{customer.Email}, subject, body); err != nil {
		s.log.Warn("invoice email failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) audit(ctx context.Context, invoice *invoicedomain.Invoice, action string, metadata map[string]any) {
	if err := s.auditSvc.Record(ctx, invoice.BusinessID, action, "invoice", invoice.ID.String(), metadata); err != nil {
		s.log.Debug("audit write skipped", zap.String("action", action), zap.Error(err))
	}
}

func resolveTax(cfg taxdomain.Config, override *taxdomain.Override) (rate decimal.Decimal, overrideAmount *decimal.Decimal, name string, err error) {
	if !cfg.Enabled {
		// Tax feature off: no rate, no override, regardless of input.
		return decimal.Zero, nil, "", nil
	}

	name = cfg.Name
	rate = cfg.Rate

	if override == nil {
		return rate, nil, name, nil
	}
	if err := override.Validate(); err != nil {
		return decimal.Zero, nil, "", err
	}
	if !cfg.AllowManualOverride {
		return decimal.Zero, nil, "", taxdomain.ErrOverrideNotAllowed
	}

	if override.Name != "" {
		name = override.Name
	}
	if override.Rate != nil {
		rate = *override.Rate
	}
	if override.Amount != nil {
		amount := *override.Amount
		overrideAmount = &amount
	}
	return rate, overrideAmount, name, nil
}

func normalizeDiscountType(value invoicedomain.DiscountType) invoicedomain.DiscountType {
	if value == invoicedomain.DiscountPercentage {
		return invoicedomain.DiscountPercentage
	}
	return invoicedomain.DiscountFixed
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

func newSlug() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("inv_%d", time.Now().UnixNano())
	}
	return "inv_" + hex.EncodeToString(buf)
}
