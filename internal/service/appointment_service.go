package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicflow/clinicflow/internal/config"
	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/internal/domain/appointment"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/visit"
	"github.com/clinicflow/clinicflow/pkg/metrics"
)

// AppointmentService detects calendar conflicts and searches for alternative
// slots. Conflict detection itself is read-only; the appointment write
// re-validates inside a transaction so two bookings that both passed the
// check cannot both commit.
type AppointmentService struct {
	repo        appointment.Repository
	patientRepo patient.Repository
	staffRepo   domain.StaffRepository
	visitRepo   visit.Repository
	tx          TxManager
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
	cfg         config.SchedulingConfig

	// now is injectable for deterministic tests.
	now func() time.Time
}

func NewAppointmentService(
	repo appointment.Repository,
	patientRepo patient.Repository,
	staffRepo domain.StaffRepository,
	visitRepo visit.Repository,
	tx TxManager,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
	cfg config.SchedulingConfig,
) *AppointmentService {
	return &AppointmentService{
		repo:        repo,
		patientRepo: patientRepo,
		staffRepo:   staffRepo,
		visitRepo:   visitRepo,
		tx:          tx,
		auditSvc:    auditSvc,
		metrics:     collector,
		log:         log,
		cfg:         cfg,
		now:         time.Now,
	}
}

// FindConflicts returns the doctor's active appointments overlapping
// [start, start+duration). The active calendar is fetched once and scanned
// in memory; excludeID lets an update check against all other appointments.
func (s *AppointmentService) FindConflicts(
	ctx context.Context,
	doctorID uuid.UUID,
	start time.Time,
	duration time.Duration,
	excludeID *uuid.UUID,
) ([]*appointment.Appointment, error) {
	end := start.Add(duration)

	active, err := s.repo.ListActiveByDoctor(ctx, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading active appointments: %w", err)
	}

	return scanConflicts(active, start, end, excludeID), nil
}

func scanConflicts(active []*appointment.Appointment, start, end time.Time, excludeID *uuid.UUID) []*appointment.Appointment {
	conflicts := []*appointment.Appointment{}
	for _, a := range active {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Overlaps(start, end) {
			conflicts = append(conflicts, a)
		}
	}
	return conflicts
}

// Availability is the answer to "can doctor D see someone at T for D minutes".
// SuggestedTimes is always non-nil, empty when the slot is free or no
// alternative exists within the horizon.
type Availability struct {
	Available      bool                       `json:"available"`
	Conflicts      []*appointment.Appointment `json:"conflicts"`
	SuggestedTimes []time.Time                `json:"suggested_times"`
}

// CheckAvailability runs conflict detection and, when the slot is taken,
// proposes up to the configured number of alternatives.
func (s *AppointmentService) CheckAvailability(
	ctx context.Context,
	doctorID uuid.UUID,
	start time.Time,
	durationMins int,
	excludeID *uuid.UUID,
) (*Availability, error) {
	duration := time.Duration(durationMins) * time.Minute

	conflicts, err := s.FindConflicts(ctx, doctorID, start, duration, excludeID)
	if err != nil {
		return nil, err
	}

	avail := &Availability{
		Available:      len(conflicts) == 0,
		Conflicts:      conflicts,
		SuggestedTimes: []time.Time{},
	}

	if !avail.Available {
		s.metrics.ConflictsDetectedTotal.Inc()
		suggestions, err := s.SuggestAlternativeSlots(ctx, doctorID, start, durationMins, s.cfg.MaxSuggestions, s.cfg.HorizonDays)
		if err != nil {
			return nil, err
		}
		avail.SuggestedTimes = suggestions
	}

	return avail, nil
}

// ValidateSchedulingRules is the business-hours gate, independent of
// conflict detection: the start must be in the future, within business
// hours, at least the minimum lead time away, and the duration within the
// service-level bound.
func (s *AppointmentService) ValidateSchedulingRules(start time.Time, durationMins int) error {
	now := s.now()

	if !start.After(now) {
		return appointment.ErrScheduledInPast
	}
	hour := start.Local().Hour()
	if hour < s.cfg.BusinessHourStart || hour >= s.cfg.BusinessHourEnd {
		return appointment.ErrOutsideBusinessHours
	}
	if start.Sub(now) < s.cfg.MinLeadTime {
		return appointment.ErrInsufficientLeadTime
	}
	if durationMins < s.cfg.MinDurationMins || durationMins > s.cfg.MaxDurationMins {
		return appointment.ErrDurationOutsideService
	}
	return nil
}

// SuggestAlternativeSlots greedily walks a 30-minute grid over business
// hours for up to horizonDays starting at preferredStart's date, skipping
// candidates at or before now, and returns the first maxSuggestions free
// slots in chronological order. The doctor's active calendar is fetched
// once for the whole horizon and scanned in memory per candidate.
func (s *AppointmentService) SuggestAlternativeSlots(
	ctx context.Context,
	doctorID uuid.UUID,
	preferredStart time.Time,
	durationMins, maxSuggestions, horizonDays int,
) ([]time.Time, error) {
	if maxSuggestions <= 0 {
		maxSuggestions = s.cfg.MaxSuggestions
	}
	if horizonDays <= 0 {
		horizonDays = s.cfg.HorizonDays
	}

	duration := time.Duration(durationMins) * time.Minute
	now := s.now()

	loc := preferredStart.Location()
	year, month, day := preferredStart.Date()
	horizonStart := time.Date(year, month, day, s.cfg.BusinessHourStart, 0, 0, 0, loc)
	horizonEnd := horizonStart.AddDate(0, 0, horizonDays)

	active, err := s.repo.ListActiveByDoctor(ctx, doctorID, horizonStart, horizonEnd)
	if err != nil {
		return nil, fmt.Errorf("loading active appointments: %w", err)
	}

	suggestions := []time.Time{}
	for offset := 0; offset < horizonDays; offset++ {
		dayStart := horizonStart.AddDate(0, 0, offset)
		dayEnd := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), s.cfg.BusinessHourEnd, 0, 0, 0, loc)

		for candidate := dayStart; candidate.Before(dayEnd); candidate = candidate.Add(s.cfg.SlotStep) {
			if !candidate.After(now) {
				continue
			}
			if len(scanConflicts(active, candidate, candidate.Add(duration), nil)) > 0 {
				continue
			}
			suggestions = append(suggestions, candidate)
			if len(suggestions) >= maxSuggestions {
				s.metrics.SuggestionsServedTotal.Add(float64(len(suggestions)))
				return suggestions, nil
			}
		}
	}

	s.metrics.SuggestionsServedTotal.Add(float64(len(suggestions)))
	return suggestions, nil
}

// Create books a new appointment. Conflicts are re-checked inside the write
// transaction so a concurrent booking that passed the same pre-check is
// rejected rather than double-committed.
func (s *AppointmentService) Create(ctx context.Context, cmd *appointment.CreateCommand, callerID uuid.UUID, callerRole string, ip string) (*appointment.Appointment, error) {
	if cmd.DurationMins < appointment.MinDurationMins || cmd.DurationMins > appointment.MaxDurationMins {
		return nil, appointment.ErrInvalidDuration
	}
	if !cmd.Type.IsValid() {
		return nil, appointment.ErrInvalidAppointmentType
	}
	if err := s.ValidateSchedulingRules(cmd.ScheduledAt, cmd.DurationMins); err != nil {
		return nil, err
	}

	p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}
	if !p.IsActive() {
		return nil, patient.ErrPatientInactive
	}

	if _, err := s.staffRepo.GetDoctor(ctx, cmd.DoctorID); err != nil {
		return nil, err
	}

	a := &appointment.Appointment{
		PatientID:    cmd.PatientID,
		DoctorID:     cmd.DoctorID,
		ScheduledAt:  cmd.ScheduledAt,
		DurationMins: cmd.DurationMins,
		Type:         cmd.Type,
		Status:       appointment.StatusScheduled,
		Reason:       cmd.Reason,
		Notes:        cmd.Notes,
		CreatedBy:    cmd.CreatedBy,
	}

	duration := time.Duration(cmd.DurationMins) * time.Minute
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		conflicts, err := s.FindConflicts(txCtx, cmd.DoctorID, cmd.ScheduledAt, duration, nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}
		return s.repo.Create(txCtx, a)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(appointment.StatusScheduled)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		StaffID:      callerID,
		StaffRole:    callerRole,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})

	return a, nil
}

// Reschedule moves an appointment to a new slot: update then re-run the
// conflict check with the appointment itself excluded, inside the write
// transaction. There is no silent rescheduling path.
func (s *AppointmentService) Reschedule(ctx context.Context, id uuid.UUID, cmd *appointment.RescheduleCommand) (*appointment.Appointment, error) {
	if cmd.DurationMins < appointment.MinDurationMins || cmd.DurationMins > appointment.MaxDurationMins {
		return nil, appointment.ErrInvalidDuration
	}
	if err := s.ValidateSchedulingRules(cmd.ScheduledAt, cmd.DurationMins); err != nil {
		return nil, err
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.IsActive() {
		return nil, appointment.ErrInvalidStatusTransition
	}

	duration := time.Duration(cmd.DurationMins) * time.Minute
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		conflicts, err := s.FindConflicts(txCtx, a.DoctorID, cmd.ScheduledAt, duration, &a.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		a.ScheduledAt = cmd.ScheduledAt
		a.DurationMins = cmd.DurationMins
		return s.repo.Update(txCtx, a)
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient returns a patient's appointment history, newest first.
func (s *AppointmentService) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*appointment.Appointment, error) {
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit)
}

// ListUpcoming returns active appointments starting within the window.
func (s *AppointmentService) ListUpcoming(ctx context.Context, within time.Duration) ([]*appointment.Appointment, error) {
	return s.repo.ListUpcoming(ctx, within)
}

// Confirm moves scheduled → confirmed.
func (s *AppointmentService) Confirm(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.StatusConfirmed)
}

// MarkNoShow records that the patient did not arrive.
func (s *AppointmentService) MarkNoShow(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.StatusNoShow)
}

func (s *AppointmentService) transition(ctx context.Context, id uuid.UUID, target appointment.Status) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.CanTransitionTo(target) {
		return nil, appointment.ErrInvalidStatusTransition
	}
	a.Status = target
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.metrics.AppointmentsTotal.WithLabelValues(string(target)).Inc()
	return a, nil
}

// Cancel is terminal and requires a reason.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, reason string, callerID uuid.UUID, callerRole, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Cancel(reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment: %w", err)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(appointment.StatusCancelled)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		StaffID:      callerID,
		StaffRole:    callerRole,
		Action:       domain.ActionCancel,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"status":"cancelled","reason":%q}`, reason),
	})

	return a, nil
}

// CheckIn converts a booked appointment into a visit when the patient
// arrives. The visit creation and status change commit together; the front
// desk then runs the regular queue check-in against the returned visit.
func (s *AppointmentService) CheckIn(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var v *visit.Visit
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		v = &visit.Visit{
			PatientID:     a.PatientID,
			AppointmentID: &a.ID,
			Reason:        a.Reason,
			TrackingToken: uuid.NewString(),
			StartedAt:     s.now(),
		}
		if err := s.visitRepo.Create(txCtx, v); err != nil {
			return fmt.Errorf("creating visit: %w", err)
		}
		if err := a.CheckIn(v.ID); err != nil {
			return err
		}
		return s.repo.Update(txCtx, a)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(appointment.StatusCheckedIn)).Inc()
	return v, nil
}
