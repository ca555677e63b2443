package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicflow/clinicflow/internal/config"
	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/internal/domain/appointment"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/queue"
	"github.com/clinicflow/clinicflow/internal/domain/visit"
	"github.com/clinicflow/clinicflow/pkg/metrics"
)

// testCollector is shared because prometheus registration is global.
var testCollector = metrics.NewCollector("test")

type mockQueueRepo struct {
	CreateFunc          func(ctx context.Context, e *queue.Entry) error
	GetByIDFunc         func(ctx context.Context, id uuid.UUID) (*queue.Entry, error)
	GetByVisitIDFunc    func(ctx context.Context, visitID uuid.UUID) (*queue.Entry, error)
	ListByStatusFunc    func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error)
	CountByStatusFunc   func(ctx context.Context, status queue.Status) (int64, error)
	UpdateFunc          func(ctx context.Context, e *queue.Entry) error
	UpdatePositionsFunc func(ctx context.Context, positions map[uuid.UUID]int) error
	ClaimFunc           func(ctx context.Context, id, doctorID uuid.UUID, room string, at time.Time) (*queue.Entry, error)
}

func (m *mockQueueRepo) Create(ctx context.Context, e *queue.Entry) error {
	return m.CreateFunc(ctx, e)
}

func (m *mockQueueRepo) GetByID(ctx context.Context, id uuid.UUID) (*queue.Entry, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockQueueRepo) GetByVisitID(ctx context.Context, visitID uuid.UUID) (*queue.Entry, error) {
	return m.GetByVisitIDFunc(ctx, visitID)
}

func (m *mockQueueRepo) ListByStatus(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
	return m.ListByStatusFunc(ctx, statuses...)
}

func (m *mockQueueRepo) CountByStatus(ctx context.Context, status queue.Status) (int64, error) {
	return m.CountByStatusFunc(ctx, status)
}

func (m *mockQueueRepo) Update(ctx context.Context, e *queue.Entry) error {
	return m.UpdateFunc(ctx, e)
}

func (m *mockQueueRepo) UpdatePositions(ctx context.Context, positions map[uuid.UUID]int) error {
	return m.UpdatePositionsFunc(ctx, positions)
}

func (m *mockQueueRepo) Claim(ctx context.Context, id, doctorID uuid.UUID, room string, at time.Time) (*queue.Entry, error) {
	return m.ClaimFunc(ctx, id, doctorID, room, at)
}

type mockVisitRepo struct {
	CreateFunc             func(ctx context.Context, v *visit.Visit) error
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*visit.Visit, error)
	GetByTrackingTokenFunc func(ctx context.Context, token string) (*visit.Visit, error)
	UpdateFunc             func(ctx context.Context, v *visit.Visit) error
}

func (m *mockVisitRepo) Create(ctx context.Context, v *visit.Visit) error {
	return m.CreateFunc(ctx, v)
}

func (m *mockVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockVisitRepo) GetByTrackingToken(ctx context.Context, token string) (*visit.Visit, error) {
	return m.GetByTrackingTokenFunc(ctx, token)
}

func (m *mockVisitRepo) Update(ctx context.Context, v *visit.Visit) error {
	return m.UpdateFunc(ctx, v)
}

type mockPatientRepo struct {
	CreateFunc          func(ctx context.Context, p *patient.Patient) error
	GetByIDFunc         func(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	GetByNationalIDFunc func(ctx context.Context, nationalID string) (*patient.Patient, error)
	UpdateFunc          func(ctx context.Context, p *patient.Patient) error
}

func (m *mockPatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	return m.CreateFunc(ctx, p)
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockPatientRepo) GetByNationalID(ctx context.Context, nationalID string) (*patient.Patient, error) {
	return m.GetByNationalIDFunc(ctx, nationalID)
}

func (m *mockPatientRepo) Update(ctx context.Context, p *patient.Patient) error {
	return m.UpdateFunc(ctx, p)
}

type mockStaffRepo struct {
	CreateFunc             func(ctx context.Context, s *domain.Staff) error
	GetByEmailFunc         func(ctx context.Context, email string) (*domain.Staff, error)
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*domain.Staff, error)
	GetDoctorFunc          func(ctx context.Context, id uuid.UUID) (*domain.Staff, error)
	UpdateLoginAttemptFunc func(ctx context.Context, id uuid.UUID, success bool) error
}

func (m *mockStaffRepo) Create(ctx context.Context, s *domain.Staff) error {
	return m.CreateFunc(ctx, s)
}

func (m *mockStaffRepo) GetByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *mockStaffRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockStaffRepo) GetDoctor(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	return m.GetDoctorFunc(ctx, id)
}

func (m *mockStaffRepo) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	return m.UpdateLoginAttemptFunc(ctx, id, success)
}

type mockAppointmentRepo struct {
	CreateFunc             func(ctx context.Context, a *appointment.Appointment) error
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	UpdateFunc             func(ctx context.Context, a *appointment.Appointment) error
	ListActiveByDoctorFunc func(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*appointment.Appointment, error)
	ListByPatientFunc      func(ctx context.Context, patientID uuid.UUID, limit int) ([]*appointment.Appointment, error)
	ListUpcomingFunc       func(ctx context.Context, within time.Duration) ([]*appointment.Appointment, error)
}

func (m *mockAppointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	return m.CreateFunc(ctx, a)
}

func (m *mockAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockAppointmentRepo) Update(ctx context.Context, a *appointment.Appointment) error {
	return m.UpdateFunc(ctx, a)
}

func (m *mockAppointmentRepo) ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*appointment.Appointment, error) {
	return m.ListActiveByDoctorFunc(ctx, doctorID, from, to)
}

func (m *mockAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*appointment.Appointment, error) {
	return m.ListByPatientFunc(ctx, patientID, limit)
}

func (m *mockAppointmentRepo) ListUpcoming(ctx context.Context, within time.Duration) ([]*appointment.Appointment, error) {
	return m.ListUpcomingFunc(ctx, within)
}

type mockAuditRepo struct{}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	return nil
}

// passthroughTx runs the function directly with no transaction semantics.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// passthroughLocker runs the function directly; lockErr simulates contention.
type passthroughLocker struct {
	lockErr error
}

func (l *passthroughLocker) WithQueueLock(ctx context.Context, clinic string, fn func(ctx context.Context) error) error {
	if l.lockErr != nil {
		return l.lockErr
	}
	return fn(ctx)
}

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		AvgConsultMinutes: 15,
		ClaimRetries:      1,
	}
}

func testSchedulingConfig() config.SchedulingConfig {
	return config.SchedulingConfig{
		BusinessHourStart: 9,
		BusinessHourEnd:   17,
		SlotStep:          30 * time.Minute,
		MinLeadTime:       time.Hour,
		MinDurationMins:   15,
		MaxDurationMins:   120,
		MaxSuggestions:    3,
		HorizonDays:       3,
	}
}

func testAuditService() *AuditService {
	return NewAuditService(&mockAuditRepo{}, zap.NewNop())
}
