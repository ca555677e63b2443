package gormstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicflow/clinicflow/internal/domain/visit"
)

type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	return dbFrom(ctx, r.db).Create(v).Error
}

func (r *VisitRepository) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	var v visit.Visit
	err := dbFrom(ctx, r.db).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, visit.ErrVisitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VisitRepository) GetByTrackingToken(ctx context.Context, token string) (*visit.Visit, error) {
	var v visit.Visit
	err := dbFrom(ctx, r.db).First(&v, "tracking_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, visit.ErrVisitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VisitRepository) Update(ctx context.Context, v *visit.Visit) error {
	return dbFrom(ctx, r.db).Save(v).Error
}
