package gormstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicflow/clinicflow/internal/domain/patient"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	err := dbFrom(ctx, r.db).Create(p).Error
	if err != nil && isUniqueViolation(err) {
		return patient.ErrPatientAlreadyExists
	}
	return err
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := dbFrom(ctx, r.db).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PatientRepository) GetByNationalID(ctx context.Context, nationalID string) (*patient.Patient, error) {
	var p patient.Patient
	err := dbFrom(ctx, r.db).First(&p, "national_id = ?", nationalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PatientRepository) Update(ctx context.Context, p *patient.Patient) error {
	return dbFrom(ctx, r.db).Save(p).Error
}
