package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error

	// GetByID retrieves an appointment by primary key. Returns
	// ErrAppointmentNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Update persists the full appointment state.
	Update(ctx context.Context, a *Appointment) error

	// ListActiveByDoctor returns the doctor's active appointments whose
	// intervals may intersect [from, to), ordered by scheduled time. Conflict
	// detection and slot search fetch this once per horizon and scan in memory.
	ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error)

	// ListByPatient returns a patient's appointments, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Appointment, error)

	// ListUpcoming returns active appointments starting within the window,
	// used by reminder jobs.
	ListUpcoming(ctx context.Context, within time.Duration) ([]*Appointment, error)
}
