package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicflow/clinicflow/internal/config"
	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/queue"
	"github.com/clinicflow/clinicflow/internal/domain/triage"
	"github.com/clinicflow/clinicflow/internal/domain/visit"
	"github.com/clinicflow/clinicflow/pkg/lock"
	"github.com/clinicflow/clinicflow/pkg/metrics"
)

// defaultClinic scopes the queue lock. Multi-site deployments would key
// this off the request; a single clinic shares one waiting list.
const defaultClinic = "default"

// QueueService owns the waiting and in-progress list: status transitions,
// position assignment and call-next selection. It performs no concurrency
// control of its own beyond the per-clinic lock and the conditional claim;
// everything else is read-modify-write over the repositories.
type QueueService struct {
	queueRepo   queue.Repository
	visitRepo   visit.Repository
	patientRepo patient.Repository
	staffRepo   domain.StaffRepository
	tx          TxManager
	locker      lock.Locker
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
	cfg         config.QueueConfig

	// now is injectable for deterministic tests.
	now func() time.Time
}

func NewQueueService(
	queueRepo queue.Repository,
	visitRepo visit.Repository,
	patientRepo patient.Repository,
	staffRepo domain.StaffRepository,
	tx TxManager,
	locker lock.Locker,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
	cfg config.QueueConfig,
) *QueueService {
	return &QueueService{
		queueRepo:   queueRepo,
		visitRepo:   visitRepo,
		patientRepo: patientRepo,
		staffRepo:   staffRepo,
		tx:          tx,
		locker:      locker,
		auditSvc:    auditSvc,
		metrics:     collector,
		log:         log,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ScoreTriage is a pure pass-through to the scorer, exposed so the front
// desk can preview a score before committing a check-in.
func (s *QueueService) ScoreTriage(vitals triage.Vitals, symptoms string) triage.Result {
	res := triage.Score(vitals, symptoms)
	s.metrics.TriageScoresTotal.WithLabelValues(string(res.Level)).Inc()
	return res
}

// EstimateWait quotes a wait in minutes for the given queue depth.
func (s *QueueService) EstimateWait(patientsAhead int, avgConsultMinutes float64) (int, error) {
	if avgConsultMinutes == 0 {
		avgConsultMinutes = s.cfg.AvgConsultMinutes
	}
	mins, err := triage.EstimateWait(patientsAhead, avgConsultMinutes)
	if err != nil {
		return 0, &ValidationError{Fields: []string{err.Error()}}
	}
	return mins, nil
}

type CheckInCommand struct {
	Patient  patient.UpsertCommand
	Vitals   triage.Vitals
	Symptoms string
	Reason   string
	// VisitID is set when the visit already exists, e.g. an appointment
	// converted at the front desk. Otherwise a fresh visit is created.
	VisitID   *uuid.UUID
	StaffID   uuid.UUID
	StaffRole string
	IP        string
}

type CheckInResult struct {
	Patient       *patient.Patient `json:"patient"`
	Visit         *visit.Visit     `json:"visit"`
	Entry         *queue.Entry     `json:"queue_entry"`
	Triage        triage.Result    `json:"triage"`
	TrackingToken string           `json:"tracking_token"`
}

// CheckIn runs the whole check-in flow as one atomic unit: patient upsert,
// visit creation, triage scoring, queue insertion and tracking-token
// issuance. If any step fails every prior write rolls back. Position
// recalculation follows outside the transaction under the clinic lock.
func (s *QueueService) CheckIn(ctx context.Context, cmd CheckInCommand) (*CheckInResult, error) {
	if err := validateCheckIn(&cmd); err != nil {
		return nil, err
	}

	result := &CheckInResult{}

	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		p, err := s.upsertPatient(txCtx, cmd.Patient)
		if err != nil {
			return err
		}
		result.Patient = p

		v := cmd.VisitID
		if v == nil {
			newVisit := &visit.Visit{
				PatientID:     p.ID,
				Reason:        cmd.Reason,
				Symptoms:      cmd.Symptoms,
				TrackingToken: uuid.NewString(),
				StartedAt:     s.now(),
			}
			if err := s.visitRepo.Create(txCtx, newVisit); err != nil {
				return fmt.Errorf("creating visit: %w", err)
			}
			result.Visit = newVisit
		} else {
			existing, err := s.visitRepo.GetByID(txCtx, *v)
			if err != nil {
				return err
			}
			result.Visit = existing
		}

		result.Triage = triage.Score(cmd.Vitals, cmd.Symptoms)

		ahead, err := s.queueRepo.CountByStatus(txCtx, queue.StatusWaiting)
		if err != nil {
			return fmt.Errorf("counting waiting entries: %w", err)
		}
		estimate, err := triage.EstimateWait(int(ahead), s.cfg.AvgConsultMinutes)
		if err != nil {
			return err
		}

		entry := &queue.Entry{
			VisitID:           result.Visit.ID,
			PatientID:         p.ID,
			Status:            queue.StatusWaiting,
			Priority:          queue.PriorityFromLevel(result.Triage.Level),
			CheckInTime:       s.now(),
			EstimatedWaitMins: estimate,
		}
		if err := s.queueRepo.Create(txCtx, entry); err != nil {
			return err
		}
		result.Entry = entry
		result.TrackingToken = result.Visit.TrackingToken
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.RecalculatePositions(ctx); err != nil {
		// The entry is committed; the next recalculation repairs ordering.
		s.log.Error("position recalculation after check-in failed", zap.Error(err))
	}

	s.metrics.CheckInsTotal.WithLabelValues(string(result.Triage.Level)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		StaffID:      cmd.StaffID,
		StaffRole:    cmd.StaffRole,
		Action:       domain.ActionCheckIn,
		ResourceType: "queue_entry",
		ResourceID:   result.Entry.ID.String(),
		IPAddress:    cmd.IP,
	})

	s.log.Info("patient checked in",
		zap.String("queue_entry_id", result.Entry.ID.String()),
		zap.String("priority", string(result.Entry.Priority)),
		zap.Int("triage_score", result.Triage.Score),
	)

	return result, nil
}

type EnqueueCommand struct {
	VisitID           uuid.UUID
	PatientID         uuid.UUID
	Priority          queue.Priority
	EstimatedWaitMins int
}

// Enqueue inserts an already-created visit into the queue. Rejects visits
// that are already queued.
func (s *QueueService) Enqueue(ctx context.Context, cmd EnqueueCommand) (*queue.Entry, error) {
	if existing, err := s.queueRepo.GetByVisitID(ctx, cmd.VisitID); err == nil && existing != nil {
		return nil, queue.ErrVisitAlreadyQueued
	} else if err != nil && !errors.Is(err, queue.ErrEntryNotFound) {
		return nil, fmt.Errorf("checking for existing entry: %w", err)
	}

	entry := &queue.Entry{
		VisitID:           cmd.VisitID,
		PatientID:         cmd.PatientID,
		Status:            queue.StatusWaiting,
		Priority:          cmd.Priority,
		CheckInTime:       s.now(),
		EstimatedWaitMins: cmd.EstimatedWaitMins,
	}
	if err := s.queueRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	if _, err := s.RecalculatePositions(ctx); err != nil {
		s.log.Error("position recalculation after enqueue failed", zap.Error(err))
	}

	return entry, nil
}

// Transition moves a queue entry to the target status, applying the state
// machine's side effects, then recalculates positions when the waiting
// set's membership may have changed.
func (s *QueueService) Transition(ctx context.Context, id uuid.UUID, target queue.Status, note string) (*queue.Entry, error) {
	entry, err := s.queueRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := entry.Status
	if err := entry.TransitionTo(target, s.now()); err != nil {
		return nil, err
	}
	if note != "" {
		entry.Note = note
	}

	if err := s.queueRepo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("updating queue entry: %w", err)
	}

	s.metrics.QueueTransitionsTotal.WithLabelValues(string(from), string(target)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionTransition,
		ResourceType: "queue_entry",
		ResourceID:   entry.ID.String(),
		Changes:      fmt.Sprintf(`{"from":%q,"to":%q}`, from, target),
	})

	if from == queue.StatusWaiting || target == queue.StatusWaiting {
		if _, err := s.RecalculatePositions(ctx); err != nil {
			s.log.Error("position recalculation after transition failed", zap.Error(err))
		}
	}

	return entry, nil
}

// CallNext selects the best waiting entry for the doctor and atomically
// claims it. Two doctors calling next simultaneously never receive the same
// entry: the claim is a conditional update that only succeeds if the entry
// is still waiting at write time, and a lost race re-selects.
func (s *QueueService) CallNext(ctx context.Context, doctorID uuid.UUID, room string) (*queue.Entry, error) {
	doctor, err := s.staffRepo.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if room == "" {
		room = doctor.Room
	}

	for attempt := 0; attempt <= s.cfg.ClaimRetries; attempt++ {
		waiting, err := s.queueRepo.ListByStatus(ctx, queue.StatusWaiting)
		if err != nil {
			return nil, fmt.Errorf("listing waiting entries: %w", err)
		}
		if len(waiting) == 0 {
			return nil, queue.ErrEmptyQueue
		}

		queue.SortForCall(waiting)
		next := waiting[0]

		claimed, err := s.queueRepo.Claim(ctx, next.ID, doctorID, room, s.now())
		if errors.Is(err, queue.ErrEntryClaimed) {
			s.log.Warn("lost call-next claim race, re-selecting",
				zap.String("entry_id", next.ID.String()),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("claiming queue entry: %w", err)
		}

		if _, err := s.RecalculatePositions(ctx); err != nil {
			s.log.Error("position recalculation after call-next failed", zap.Error(err))
		}

		s.metrics.CallNextTotal.Inc()
		s.auditSvc.LogAsync(ctx, AuditEntry{
			StaffID:      doctorID,
			StaffRole:    string(domain.RoleDoctor),
			Action:       domain.ActionCallNext,
			ResourceType: "queue_entry",
			ResourceID:   claimed.ID.String(),
		})

		if claimed.ActualWaitMins == nil && claimed.CalledAt != nil {
			s.metrics.WaitTimeMinutes.Observe(claimed.CalledAt.Sub(claimed.CheckInTime).Minutes())
		}

		return claimed, nil
	}

	return nil, &ConcurrencyError{Op: "call-next"}
}

// RemoveFromQueue cancels a waiting or in-progress entry with a mandatory
// reason, then recalculates positions.
func (s *QueueService) RemoveFromQueue(ctx context.Context, id uuid.UUID, reason string) (*queue.Entry, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, queue.ErrReasonRequired
	}
	return s.Transition(ctx, id, queue.StatusCancelled, reason)
}

// RecalculatePositions rebuilds the contiguous 1..N position sequence over
// all waiting entries, ordered by (priority desc, check-in time asc). The
// read-compute-write sequence runs under the per-clinic lock; a full
// recompute is simple and fast enough at clinic scale.
func (s *QueueService) RecalculatePositions(ctx context.Context) (int, error) {
	var updated int

	err := s.locker.WithQueueLock(ctx, defaultClinic, func(lockCtx context.Context) error {
		started := s.now()

		waiting, err := s.queueRepo.ListByStatus(lockCtx, queue.StatusWaiting)
		if err != nil {
			return fmt.Errorf("listing waiting entries: %w", err)
		}

		queue.SortWaiting(waiting)

		positions := make(map[uuid.UUID]int, len(waiting))
		for i, e := range waiting {
			positions[e.ID] = i + 1
		}

		if err := s.queueRepo.UpdatePositions(lockCtx, positions); err != nil {
			return fmt.Errorf("writing positions: %w", err)
		}

		updated = len(waiting)
		s.metrics.QueueDepth.Set(float64(updated))
		s.metrics.RecalcDuration.Observe(time.Since(started).Seconds())
		return nil
	})
	if errors.Is(err, lock.ErrLockNotAcquired) {
		return 0, &ConcurrencyError{Op: "position recalculation"}
	}
	if err != nil {
		return 0, err
	}

	return updated, nil
}

// Board is the read model for the waiting-room display.
type Board struct {
	Waiting    []*queue.Entry       `json:"waiting"`
	InProgress []*queue.Entry       `json:"in_progress"`
	Counts     map[queue.Status]int `json:"counts"`
}

// QueueBoard lists current waiting and in-progress entries with refreshed
// wait estimates.
func (s *QueueService) QueueBoard(ctx context.Context) (*Board, error) {
	entries, err := s.queueRepo.ListByStatus(ctx, queue.StatusWaiting, queue.StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("listing queue entries: %w", err)
	}

	board := &Board{
		Waiting:    []*queue.Entry{},
		InProgress: []*queue.Entry{},
		Counts:     map[queue.Status]int{},
	}
	for _, status := range []queue.Status{queue.StatusCompleted, queue.StatusCancelled} {
		n, err := s.queueRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("counting %s entries: %w", status, err)
		}
		board.Counts[status] = int(n)
	}
	for _, e := range entries {
		switch e.Status {
		case queue.StatusWaiting:
			if mins, err := triage.EstimateWait(max(e.Position-1, 0), s.cfg.AvgConsultMinutes); err == nil {
				e.EstimatedWaitMins = mins
			}
			board.Waiting = append(board.Waiting, e)
		case queue.StatusInProgress:
			board.InProgress = append(board.InProgress, e)
		}
	}
	queue.SortWaiting(board.Waiting)
	board.Counts[queue.StatusWaiting] = len(board.Waiting)
	board.Counts[queue.StatusInProgress] = len(board.InProgress)

	return board, nil
}

// TrackingStatus is the public view of a visit's queue standing, safe to
// show without authentication because the token is the only key.
type TrackingStatus struct {
	Status            queue.Status `json:"status"`
	Position          int          `json:"position,omitempty"`
	EstimatedWaitMins int          `json:"estimated_wait_mins,omitempty"`
}

// TrackVisit resolves a tracking token to the visit's current queue status.
func (s *QueueService) TrackVisit(ctx context.Context, token string) (*TrackingStatus, error) {
	v, err := s.visitRepo.GetByTrackingToken(ctx, token)
	if err != nil {
		return nil, err
	}

	entry, err := s.queueRepo.GetByVisitID(ctx, v.ID)
	if err != nil {
		return nil, err
	}

	status := &TrackingStatus{Status: entry.Status}
	if entry.Status == queue.StatusWaiting {
		status.Position = entry.Position
		if mins, err := triage.EstimateWait(max(entry.Position-1, 0), s.cfg.AvgConsultMinutes); err == nil {
			status.EstimatedWaitMins = mins
		}
	}
	return status, nil
}

func (s *QueueService) upsertPatient(ctx context.Context, cmd patient.UpsertCommand) (*patient.Patient, error) {
	if cmd.NationalID != "" {
		existing, err := s.patientRepo.GetByNationalID(ctx, cmd.NationalID)
		if err == nil {
			if !existing.IsActive() {
				return nil, patient.ErrPatientInactive
			}
			return existing, nil
		}
		if !errors.Is(err, patient.ErrPatientNotFound) {
			return nil, fmt.Errorf("looking up patient: %w", err)
		}
	}

	p := &patient.Patient{
		FirstName:   strings.TrimSpace(cmd.FirstName),
		LastName:    strings.TrimSpace(cmd.LastName),
		DateOfBirth: cmd.DateOfBirth,
		Gender:      cmd.Gender,
		NationalID:  strings.TrimSpace(cmd.NationalID),
		Phone:       strings.TrimSpace(cmd.Phone),
		Email:       strings.ToLower(strings.TrimSpace(cmd.Email)),
		Allergies:   cmd.Allergies,
		Status:      patient.StatusActive,
		CreatedBy:   cmd.CreatedBy,
	}
	if err := s.patientRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating patient: %w", err)
	}
	return p, nil
}

func validateCheckIn(cmd *CheckInCommand) error {
	var errs []string

	if cmd.VisitID == nil {
		if strings.TrimSpace(cmd.Patient.FirstName) == "" {
			errs = append(errs, "first_name is required")
		}
		if strings.TrimSpace(cmd.Patient.LastName) == "" {
			errs = append(errs, "last_name is required")
		}
		if !cmd.Patient.Gender.IsValid() {
			errs = append(errs, "gender is invalid")
		}
	}
	if cmd.Vitals.PainLevel < 0 || cmd.Vitals.PainLevel > 10 {
		errs = append(errs, "pain_level must be between 0 and 10")
	}
	if cmd.Vitals.TemperatureF < 80 || cmd.Vitals.TemperatureF > 115 {
		errs = append(errs, "temperature_f is out of measurable range")
	}
	if cmd.Vitals.HeartRate <= 0 || cmd.Vitals.HeartRate > 300 {
		errs = append(errs, "heart_rate is out of measurable range")
	}
	if cmd.Vitals.SystolicBP <= 0 || cmd.Vitals.DiastolicBP <= 0 {
		errs = append(errs, "blood pressure readings must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
