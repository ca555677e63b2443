package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicflow/clinicflow/internal/domain/appointment"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	return dbFrom(ctx, r.db).Create(a).Error
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := dbFrom(ctx, r.db).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, a *appointment.Appointment) error {
	return dbFrom(ctx, r.db).Save(a).Error
}

func (r *AppointmentRepository) ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*appointment.Appointment, error) {
	var appts []*appointment.Appointment
	// scheduled_at < to AND end > from is the half-open overlap condition
	// pushed down to SQL; the duration is stored in minutes.
	err := dbFrom(ctx, r.db).
		Where("doctor_id = ? AND status IN ?", doctorID, appointment.ActiveStatuses).
		Where("scheduled_at < ? AND scheduled_at + make_interval(mins => duration_mins) > ?", to, from).
		Order("scheduled_at ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*appointment.Appointment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var appts []*appointment.Appointment
	err := dbFrom(ctx, r.db).
		Where("patient_id = ?", patientID).
		Order("scheduled_at DESC").
		Limit(limit).
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *AppointmentRepository) ListUpcoming(ctx context.Context, within time.Duration) ([]*appointment.Appointment, error) {
	var appts []*appointment.Appointment
	now := time.Now()
	err := dbFrom(ctx, r.db).
		Where("status IN ? AND scheduled_at BETWEEN ? AND ?", appointment.ActiveStatuses, now, now.Add(within)).
		Order("scheduled_at ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}
