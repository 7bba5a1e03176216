package repository

import (
	"context"

	auditdomain "github.com/billora/billora/internal/audit/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auditdomain.Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, entry *auditdomain.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, businessID snowflake.ID, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	var entries []auditdomain.AuditLog
	stmt := r.db.WithContext(ctx).
		Model(&auditdomain.AuditLog{}).
		Where("business_id = ?", businessID)

	if filter.Action != "" {
		stmt = stmt.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		stmt = stmt.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		stmt = stmt.Where("target_id = ?", filter.TargetID)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *filter.StartAt)
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", *filter.EndAt)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 250 {
		limit = 100
	}

	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
