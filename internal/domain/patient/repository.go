package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists on
	// duplicate national ID.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound
	// if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetByNationalID retrieves a patient by their national identifier.
	GetByNationalID(ctx context.Context, nationalID string) (*Patient, error)

	Update(ctx context.Context, p *Patient) error
}
