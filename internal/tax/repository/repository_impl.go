package repository

import (
	"context"

	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindByBusiness(ctx context.Context, businessID snowflake.ID) (*taxdomain.TaxSettings, error) {
	var settings taxdomain.TaxSettings
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, business_id, enabled, name, rate, allow_manual_override, created_at, updated_at
		 FROM tax_settings
		 WHERE business_id = ?`,
		businessID,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.ID == 0 {
		return nil, nil
	}
	return &settings, nil
}

func (r *repository) Create(ctx context.Context, settings *taxdomain.TaxSettings) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO tax_settings (
			id, business_id, enabled, name, rate, allow_manual_override, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		settings.ID,
		settings.BusinessID,
		settings.Enabled,
		settings.Name,
		settings.Rate,
		settings.AllowManualOverride,
		settings.CreatedAt,
		settings.UpdatedAt,
	).Error
}

func (r *repository) Update(ctx context.Context, settings *taxdomain.TaxSettings) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_settings
		 SET enabled = ?, name = ?, rate = ?, allow_manual_override = ?, updated_at = ?
		 WHERE business_id = ?`,
		settings.Enabled,
		settings.Name,
		settings.Rate,
		settings.AllowManualOverride,
		settings.UpdatedAt,
		settings.BusinessID,
	).Error
}
