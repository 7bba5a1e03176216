package service

import (
	"context"
	"strings"
	"time"

	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTaxName = "VAT"

type serviceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  taxdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  taxdomain.Repository
}

func NewService(p serviceParams) taxdomain.Service {
	return &Service{
		log:   p.Log.Named("tax.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// NewResolver exposes the same service through the narrow Resolver
// interface consumed by invoice computation.
func NewResolver(p serviceParams) taxdomain.Resolver {
	return &Service{
		log:   p.Log.Named("tax.resolver"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Resolve loads the business tax settings, creating the disabled default
// row on first use so later updates have a stable record to mutate.
func (s *Service) Resolve(ctx context.Context, businessID snowflake.ID) (taxdomain.Config, error) {
	settings, err := s.getOrCreate(ctx, businessID)
	if err != nil {
		return taxdomain.Config{}, err
	}
	return settings.Config(), nil
}

func (s *Service) Get(ctx context.Context, businessID snowflake.ID) (*taxdomain.Response, error) {
	settings, err := s.getOrCreate(ctx, businessID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(settings)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, businessID snowflake.ID, req taxdomain.UpdateRequest) (*taxdomain.Response, error) {
	settings, err := s.getOrCreate(ctx, businessID)
	if err != nil {
		return nil, err
	}

	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, taxdomain.ErrInvalidTaxName
		}
		settings.Name = name
	}
	if req.Rate != nil {
		settings.Rate = *req.Rate
	}
	if req.AllowManualOverride != nil {
		settings.AllowManualOverride = *req.AllowManualOverride
	}

	settings.UpdatedAt = time.Now().UTC()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, err
	}

	resp := toResponse(settings)
	return &resp, nil
}

func (s *Service) getOrCreate(ctx context.Context, businessID snowflake.ID) (*taxdomain.TaxSettings, error) {
	if businessID == 0 {
		return nil, taxdomain.ErrInvalidBusiness
	}

	settings, err := s.repo.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	now := time.Now().UTC()
	settings = &taxdomain.TaxSettings{
		ID:                  s.genID.Generate(),
		BusinessID:          businessID,
		Enabled:             false,
		Name:                defaultTaxName,
		AllowManualOverride: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, settings); err != nil {
		return nil, err
	}

	s.log.Info("created default tax settings", zap.String("business_id", businessID.String()))
	return settings, nil
}

func toResponse(settings *taxdomain.TaxSettings) taxdomain.Response {
	return taxdomain.Response{
		ID:                  settings.ID.String(),
		BusinessID:          settings.BusinessID.String(),
		Enabled:             settings.Enabled,
		Name:                settings.Name,
		Rate:                settings.Rate,
		AllowManualOverride: settings.AllowManualOverride,
		CreatedAt:           settings.CreatedAt,
		UpdatedAt:           settings.UpdatedAt,
	}
}
