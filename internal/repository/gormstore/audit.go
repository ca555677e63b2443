package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/clinicflow/clinicflow/internal/domain"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return dbFrom(ctx, r.db).Create(entry).Error
}
