package service

import (
	"context"
	"strings"
	"time"

	businessdomain "github.com/billora/billora/internal/business/domain"
	"github.com/billora/billora/internal/secrets"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type serviceParams struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    businessdomain.Repository
	Secrets *secrets.Box
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	repo    businessdomain.Repository
	secrets *secrets.Box
}

func NewService(p serviceParams) businessdomain.Service {
	return newService(p)
}

// NewCredentialsProvider exposes the same service through the narrow
// interface gateway code depends on.
func NewCredentialsProvider(p serviceParams) businessdomain.CredentialsProvider {
	return newService(p)
}

func newService(p serviceParams) *Service {
	return &Service{
		log:     p.Log.Named("business.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		secrets: p.Secrets,
	}
}

func (s *Service) Create(ctx context.Context, req businessdomain.CreateRequest) (*businessdomain.Response, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	timezone := strings.TrimSpace(req.TimezoneName)
	if timezone == "" {
		timezone = "UTC"
	}
	invoicePrefix := strings.TrimSpace(req.InvoicePrefix)
	if invoicePrefix == "" {
		invoicePrefix = "INV"
	}
	receiptPrefix := strings.TrimSpace(req.ReceiptPrefix)
	if receiptPrefix == "" {
		receiptPrefix = "RCP"
	}

	address := req.Address
	if address == nil {
		address = datatypes.JSONMap{}
	}

	now := time.Now().UTC()
	record := &businessdomain.Business{
		ID:                     s.genID.Generate(),
		Name:                   strings.TrimSpace(req.Name),
		Email:                  strings.TrimSpace(req.Email),
		Phone:                  strings.TrimSpace(req.Phone),
		Currency:               currency,
		TimezoneName:           timezone,
		Address:                address,
		Metadata:               datatypes.JSONMap{},
		InvoicePrefix:          invoicePrefix,
		InvoiceNextNumber:      1,
		InvoiceDueDays:         30,
		ReceiptPrefix:          receiptPrefix,
		ReceiptNextNumber:      1,
		PaystackWebhookEnabled: true,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*businessdomain.Response, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req businessdomain.ListRequest) ([]businessdomain.Response, error) {
	items, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := make([]businessdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req businessdomain.UpdateRequest) (*businessdomain.Response, error) {
	record, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		record.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		record.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		record.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Currency != nil {
		record.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.TimezoneName != nil {
		record.TimezoneName = strings.TrimSpace(*req.TimezoneName)
	}
	if req.Address != nil {
		record.Address = *req.Address
	}
	if req.InvoicePrefix != nil {
		if prefix := strings.TrimSpace(*req.InvoicePrefix); prefix != "" {
			record.InvoicePrefix = prefix
		}
	}
	if req.InvoiceDueDays != nil && *req.InvoiceDueDays > 0 {
		record.InvoiceDueDays = *req.InvoiceDueDays
	}
	if req.InvoiceTerms != nil {
		record.InvoiceTerms = strings.TrimSpace(*req.InvoiceTerms)
	}
	if req.ReceiptPrefix != nil {
		if prefix := strings.TrimSpace(*req.ReceiptPrefix); prefix != "" {
			record.ReceiptPrefix = prefix
		}
	}
	if req.IsActive != nil {
		record.IsActive = *req.IsActive
	}

	record.UpdatedAt = time.Now().UTC()
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) ConnectPaystack(ctx context.Context, req businessdomain.ConnectPaystackRequest) (*businessdomain.PaystackStatus, error) {
	record, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	secretKey := strings.TrimSpace(req.SecretKey)
	if !strings.HasPrefix(secretKey, "sk_") {
		return nil, businessdomain.ErrInvalidSecretKey
	}

	sealed, err := s.secrets.Seal(secretKey)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record.PaystackEnabled = true
	record.PaystackPublicKey = strings.TrimSpace(req.PublicKey)
	record.PaystackSecretSealed = sealed
	record.PaystackSecretLast4 = lastFour(secretKey)
	if req.WebhookEnabled != nil {
		record.PaystackWebhookEnabled = *req.WebhookEnabled
	}
	if record.PaystackConnectedAt == nil {
		record.PaystackConnectedAt = &now
	}
	record.UpdatedAt = now

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("paystack connected", zap.String("business_id", record.ID.String()))
	return paystackStatus(record), nil
}

func (s *Service) DisconnectPaystack(ctx context.Context, id string) (*businessdomain.PaystackStatus, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	record.PaystackEnabled = false
	record.PaystackPublicKey = ""
	record.PaystackSecretSealed = ""
	record.PaystackSecretLast4 = ""
	record.PaystackConnectedAt = nil
	record.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("paystack disconnected", zap.String("business_id", record.ID.String()))
	return paystackStatus(record), nil
}

func (s *Service) PaystackStatus(ctx context.Context, id string) (*businessdomain.PaystackStatus, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return paystackStatus(record), nil
}

// Credentials returns the decrypted Paystack keypair for gateway calls.
func (s *Service) Credentials(ctx context.Context, businessID snowflake.ID) (*businessdomain.Credentials, error) {
	record, err := s.repo.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, businessdomain.ErrNotFound
	}
	if record.PaystackSecretSealed == "" {
		return nil, businessdomain.ErrGatewayNotConfigured
	}
	if !record.PaystackEnabled {
		return nil, businessdomain.ErrGatewayDisabled
	}

	secretKey, err := s.secrets.Open(record.PaystackSecretSealed)
	if err != nil {
		return nil, err
	}
	return &businessdomain.Credentials{
		PublicKey: record.PaystackPublicKey,
		SecretKey: secretKey,
	}, nil
}

func (s *Service) find(ctx context.Context, id string) (*businessdomain.Business, error) {
	businessID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, businessdomain.ErrInvalidID
	}

	record, err := s.repo.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, businessdomain.ErrNotFound
	}
	return record, nil
}

func toResponse(record *businessdomain.Business) businessdomain.Response {
	return businessdomain.Response{
		ID:                record.ID.String(),
		Name:              record.Name,
		Email:             record.Email,
		Phone:             record.Phone,
		Currency:          record.Currency,
		TimezoneName:      record.TimezoneName,
		Address:           record.Address,
		InvoicePrefix:     record.InvoicePrefix,
		InvoiceNextNumber: record.InvoiceNextNumber,
		InvoiceDueDays:    record.InvoiceDueDays,
		InvoiceTerms:      record.InvoiceTerms,
		ReceiptPrefix:     record.ReceiptPrefix,
		IsActive:          record.IsActive,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}

func paystackStatus(record *businessdomain.Business) *businessdomain.PaystackStatus {
	masked := ""
	if record.PaystackSecretLast4 != "" {
		masked = "********" + record.PaystackSecretLast4
	}
	return &businessdomain.PaystackStatus{
		Enabled:         record.PaystackEnabled,
		WebhookEnabled:  record.PaystackWebhookEnabled,
		PublicKey:       record.PaystackPublicKey,
		SecretKeyMasked: masked,
		ConnectedAt:     record.PaystackConnectedAt,
	}
}

func lastFour(value string) string {
	if len(value) < 4 {
		return value
	}
	return value[len(value)-4:]
}
