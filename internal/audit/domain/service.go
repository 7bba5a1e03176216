package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID      `gorm:"column:business_id;index" json:"business_id"`
	ActorType  string            `gorm:"column:actor_type;type:text;not null" json:"actor_type"`
	ActorID    *string           `gorm:"column:actor_id;type:text" json:"actor_id,omitempty"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"column:target_type;type:text;not null" json:"target_type"`
	TargetID   *string           `gorm:"column:target_id;type:text" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	IPAddress  *string           `gorm:"column:ip_address;type:text" json:"ip_address,omitempty"`
	UserAgent  *string           `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Repository interface {
	Insert(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, businessID snowflake.ID, filter ListFilter) ([]AuditLog, error)
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

// Service records who did what to which record. Writes are best-effort
// at call sites that must not fail on audit problems.
type Service interface {
	Record(ctx context.Context, businessID snowflake.ID, action, targetType, targetID string, metadata map[string]any) error
	List(ctx context.Context, businessID snowflake.ID, filter ListFilter) ([]AuditLog, error)
}

var (
	ErrInvalidBusiness = errors.New("invalid_business")
	ErrInvalidAction   = errors.New("invalid_action")
)
