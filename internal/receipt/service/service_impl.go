package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	businessdomain "github.com/billora/billora/internal/business/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	receiptdomain "github.com/billora/billora/internal/receipt/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         receiptdomain.Repository
	BusinessRepo businessdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         receiptdomain.Repository
	businessRepo businessdomain.Repository
}

func New(p Params) receiptdomain.Service {
	return newService(p)
}

func NewIssuer(p Params) receiptdomain.Issuer {
	return newService(p)
}

func newService(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("receipt.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		businessRepo: p.BusinessRepo,
	}
}

// EnsureForInvoice snapshots the settled invoice into a receipt. The
// existing receipt wins when one is already there, so duplicate gateway
// deliveries never mint a second number.
func (s *Service) EnsureForInvoice(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, method, reference string) (*receiptdomain.Receipt, error) {
	if tx == nil {
		tx = s.db
	}

	existing, err := s.repo.FindByInvoice(ctx, tx, invoice.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	number, err := s.businessRepo.NextReceiptNumber(ctx, tx, invoice.BusinessID)
	if err != nil {
		return nil, err
	}

	items, err := json.Marshal(invoice.Items)
	if err != nil {
		return nil, err
	}

	if method == "" {
		method = "other"
	}

	now := time.Now().UTC()
	receipt := &receiptdomain.Receipt{
		ID:               s.genID.Generate(),
		BusinessID:       invoice.BusinessID,
		CustomerID:       invoice.CustomerID,
		InvoiceID:        invoice.ID,
		ReceiptNumber:    number,
		InvoiceNumber:    invoice.InvoiceNumber,
		Currency:         invoice.Currency,
		Items:            items,
		Subtotal:         invoice.Subtotal,
		DiscountAmount:   invoice.DiscountAmount,
		TaxName:          invoice.TaxName,
		TaxRate:          invoice.TaxRate,
		TaxAmount:        invoice.TaxAmount,
		Shipping:         invoice.Shipping,
		Total:            invoice.Total,
		AmountPaid:       invoice.AmountPaid,
		PaymentMethod:    method,
		PaymentReference: reference,
		IssuedAt:         now,
		CreatedAt:        now,
	}

	if err := s.repo.Insert(ctx, tx, receipt); err != nil {
		return nil, err
	}

	s.log.Info("receipt issued",
		zap.String("business_id", invoice.BusinessID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("receipt_number", number),
	)
	return receipt, nil
}

func (s *Service) GetByID(ctx context.Context, businessID snowflake.ID, id string) (receiptdomain.Receipt, error) {
	if businessID == 0 {
		return receiptdomain.Receipt{}, receiptdomain.ErrInvalidBusiness
	}

	receiptID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return receiptdomain.Receipt{}, receiptdomain.ErrInvalidID
	}

	receipt, err := s.repo.FindByID(ctx, s.db, businessID, receiptID)
	if err != nil {
		return receiptdomain.Receipt{}, err
	}
	if receipt == nil {
		return receiptdomain.Receipt{}, receiptdomain.ErrNotFound
	}
	return *receipt, nil
}

func (s *Service) GetByInvoice(ctx context.Context, businessID snowflake.ID, invoiceID string) (receiptdomain.Receipt, error) {
	if businessID == 0 {
		return receiptdomain.Receipt{}, receiptdomain.ErrInvalidBusiness
	}

	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return receiptdomain.Receipt{}, receiptdomain.ErrInvalidID
	}

	receipt, err := s.repo.FindByInvoice(ctx, s.db, id)
	if err != nil {
		return receiptdomain.Receipt{}, err
	}
	if receipt == nil || receipt.BusinessID != businessID {
		return receiptdomain.Receipt{}, receiptdomain.ErrNotFound
	}
	return *receipt, nil
}

func (s *Service) List(ctx context.Context, businessID snowflake.ID) ([]receiptdomain.Receipt, error) {
	if businessID == 0 {
		return nil, receiptdomain.ErrInvalidBusiness
	}
	return s.repo.List(ctx, s.db, businessID)
}
