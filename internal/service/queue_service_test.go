package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/queue"
	"github.com/clinicflow/clinicflow/internal/domain/triage"
	"github.com/clinicflow/clinicflow/internal/domain/visit"
	"github.com/clinicflow/clinicflow/pkg/lock"
)

func newQueueService(
	queueRepo *mockQueueRepo,
	visitRepo *mockVisitRepo,
	patientRepo *mockPatientRepo,
	staffRepo *mockStaffRepo,
	locker *passthroughLocker,
) *QueueService {
	svc := NewQueueService(
		queueRepo, visitRepo, patientRepo, staffRepo,
		passthroughTx{}, locker, testAuditService(), testCollector,
		zap.NewNop(), testQueueConfig(),
	)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func waitingEntry(priority queue.Priority, checkIn time.Time) *queue.Entry {
	return &queue.Entry{
		ID:          uuid.New(),
		VisitID:     uuid.New(),
		PatientID:   uuid.New(),
		Status:      queue.StatusWaiting,
		Priority:    priority,
		CheckInTime: checkIn,
	}
}

func TestCheckInCreatesQueueEntry(t *testing.T) {
	var createdEntry *queue.Entry
	var createdVisit *visit.Visit
	var positions map[uuid.UUID]int

	queueRepo := &mockQueueRepo{
		CountByStatusFunc: func(ctx context.Context, status queue.Status) (int64, error) {
			return 4, nil
		},
		CreateFunc: func(ctx context.Context, e *queue.Entry) error {
			e.ID = uuid.New()
			createdEntry = e
			return nil
		},
		ListByStatusFunc: func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
			if createdEntry == nil {
				return nil, nil
			}
			return []*queue.Entry{createdEntry}, nil
		},
		UpdatePositionsFunc: func(ctx context.Context, p map[uuid.UUID]int) error {
			positions = p
			return nil
		},
	}
	visitRepo := &mockVisitRepo{
		CreateFunc: func(ctx context.Context, v *visit.Visit) error {
			v.ID = uuid.New()
			createdVisit = v
			return nil
		},
	}
	patientRepo := &mockPatientRepo{
		GetByNationalIDFunc: func(ctx context.Context, nationalID string) (*patient.Patient, error) {
			return nil, patient.ErrPatientNotFound
		},
		CreateFunc: func(ctx context.Context, p *patient.Patient) error {
			p.ID = uuid.New()
			return nil
		},
	}

	svc := newQueueService(queueRepo, visitRepo, patientRepo, &mockStaffRepo{}, &passthroughLocker{})

	cmd := CheckInCommand{
		Vitals: triage.Vitals{
			TemperatureF: 104.5,
			HeartRate:    130,
			SystolicBP:   180,
			DiastolicBP:  110,
			PainLevel:    9,
		},
		Symptoms: "severe chest pain",
		Reason:   "chest pain",
	}
	cmd.Patient.FirstName = "Ada"
	cmd.Patient.LastName = "Okafor"
	cmd.Patient.Gender = patient.GenderFemale
	cmd.Patient.NationalID = "NID-1"

	result, err := svc.CheckIn(context.Background(), cmd)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	if result.Triage.Level != triage.LevelHigh {
		t.Errorf("triage level = %s, want high", result.Triage.Level)
	}
	if createdEntry.Priority != queue.PriorityHigh {
		t.Errorf("entry priority = %s, want high", createdEntry.Priority)
	}
	// 4 patients ahead at 15 minutes each.
	if createdEntry.EstimatedWaitMins != 60 {
		t.Errorf("estimated wait = %d, want 60", createdEntry.EstimatedWaitMins)
	}
	if createdVisit == nil || createdVisit.TrackingToken == "" {
		t.Errorf("visit not created with tracking token")
	}
	if result.TrackingToken != createdVisit.TrackingToken {
		t.Errorf("result token mismatch")
	}
	if positions[createdEntry.ID] != 1 {
		t.Errorf("entry position = %d, want 1", positions[createdEntry.ID])
	}
}

func TestCheckInRejectsInvalidVitals(t *testing.T) {
	svc := newQueueService(&mockQueueRepo{}, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	cmd := CheckInCommand{
		Vitals: triage.Vitals{TemperatureF: 98.6, HeartRate: 75, SystolicBP: 120, DiastolicBP: 80, PainLevel: 14},
	}
	cmd.Patient.FirstName = "Ada"
	cmd.Patient.LastName = "Okafor"
	cmd.Patient.Gender = patient.GenderFemale

	_, err := svc.CheckIn(context.Background(), cmd)

	var validErr *ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCheckInReusesExistingPatient(t *testing.T) {
	existing := &patient.Patient{ID: uuid.New(), Status: patient.StatusActive, NationalID: "NID-9"}
	created := false

	queueRepo := &mockQueueRepo{
		CountByStatusFunc: func(ctx context.Context, status queue.Status) (int64, error) { return 0, nil },
		CreateFunc: func(ctx context.Context, e *queue.Entry) error {
			e.ID = uuid.New()
			return nil
		},
		ListByStatusFunc: func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
			return nil, nil
		},
		UpdatePositionsFunc: func(ctx context.Context, p map[uuid.UUID]int) error { return nil },
	}
	visitRepo := &mockVisitRepo{
		CreateFunc: func(ctx context.Context, v *visit.Visit) error {
			v.ID = uuid.New()
			return nil
		},
	}
	patientRepo := &mockPatientRepo{
		GetByNationalIDFunc: func(ctx context.Context, nationalID string) (*patient.Patient, error) {
			return existing, nil
		},
		CreateFunc: func(ctx context.Context, p *patient.Patient) error {
			created = true
			return nil
		},
	}

	svc := newQueueService(queueRepo, visitRepo, patientRepo, &mockStaffRepo{}, &passthroughLocker{})

	cmd := CheckInCommand{
		Vitals: triage.Vitals{TemperatureF: 98.6, HeartRate: 75, SystolicBP: 120, DiastolicBP: 80},
	}
	cmd.Patient.FirstName = "Ada"
	cmd.Patient.LastName = "Okafor"
	cmd.Patient.Gender = patient.GenderFemale
	cmd.Patient.NationalID = "NID-9"

	result, err := svc.CheckIn(context.Background(), cmd)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if created {
		t.Error("patient created despite national ID match")
	}
	if result.Patient.ID != existing.ID {
		t.Errorf("patient = %s, want existing %s", result.Patient.ID, existing.ID)
	}
}

func TestEnqueueRejectsDuplicateVisit(t *testing.T) {
	visitID := uuid.New()
	queueRepo := &mockQueueRepo{
		GetByVisitIDFunc: func(ctx context.Context, id uuid.UUID) (*queue.Entry, error) {
			return &queue.Entry{ID: uuid.New(), VisitID: id}, nil
		},
	}

	svc := newQueueService(queueRepo, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	_, err := svc.Enqueue(context.Background(), EnqueueCommand{VisitID: visitID, PatientID: uuid.New(), Priority: queue.PriorityLow})
	if !errors.Is(err, queue.ErrVisitAlreadyQueued) {
		t.Fatalf("expected ErrVisitAlreadyQueued, got %v", err)
	}
}

func TestRecalculatePositionsContiguousByPriority(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	lowEarly := waitingEntry(queue.PriorityLow, base)
	highLate := waitingEntry(queue.PriorityHigh, base.Add(40*time.Minute))
	medMid := waitingEntry(queue.PriorityMedium, base.Add(20*time.Minute))
	highEarly := waitingEntry(queue.PriorityHigh, base.Add(10*time.Minute))

	var written map[uuid.UUID]int
	queueRepo := &mockQueueRepo{
		ListByStatusFunc: func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
			return []*queue.Entry{lowEarly, highLate, medMid, highEarly}, nil
		},
		UpdatePositionsFunc: func(ctx context.Context, positions map[uuid.UUID]int) error {
			written = positions
			return nil
		},
	}

	svc := newQueueService(queueRepo, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	updated, err := svc.RecalculatePositions(context.Background())
	if err != nil {
		t.Fatalf("RecalculatePositions: %v", err)
	}
	if updated != 4 {
		t.Errorf("updated = %d, want 4", updated)
	}

	want := map[uuid.UUID]int{
		highEarly.ID: 1,
		highLate.ID:  2,
		medMid.ID:    3,
		lowEarly.ID:  4,
	}
	for id, pos := range want {
		if written[id] != pos {
			t.Errorf("entry %s position = %d, want %d", id, written[id], pos)
		}
	}

	// Positions form a contiguous 1..N sequence.
	seen := make(map[int]bool)
	for _, pos := range written {
		seen[pos] = true
	}
	for i := 1; i <= len(written); i++ {
		if !seen[i] {
			t.Errorf("position %d missing from sequence", i)
		}
	}
}

func TestRecalculatePositionsLockContention(t *testing.T) {
	svc := newQueueService(
		&mockQueueRepo{}, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{},
		&passthroughLocker{lockErr: lock.ErrLockNotAcquired},
	)

	_, err := svc.RecalculatePositions(context.Background())

	var concErr *ConcurrencyError
	if !errors.As(err, &concErr) {
		t.Fatalf("expected ConcurrencyError, got %v", err)
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	entry := waitingEntry(queue.PriorityMedium, time.Now())
	updated := false

	queueRepo := &mockQueueRepo{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*queue.Entry, error) {
			return entry, nil
		},
		UpdateFunc: func(ctx context.Context, e *queue.Entry) error {
			updated = true
			return nil
		},
	}

	svc := newQueueService(queueRepo, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	_, err := svc.Transition(context.Background(), entry.ID, queue.StatusCompleted, "")

	var transitionErr *queue.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if updated {
		t.Error("entry persisted despite rejected transition")
	}
}

func TestCallNextClaimsHighestPriority(t *testing.T) {
	doctorID := uuid.New()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	low := waitingEntry(queue.PriorityLow, base)
	low.Position = 2
	high := waitingEntry(queue.PriorityHigh, base.Add(30*time.Minute))
	high.Position = 1

	staffRepo := &mockStaffRepo{
		GetDoctorFunc: func(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
			return &domain.Staff{ID: id, Role: domain.RoleDoctor, IsActive: true, Room: "R01"}, nil
		},
	}
	queueRepo := &mockQueueRepo{
		ListByStatusFunc: func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
			if len(statuses) == 1 && statuses[0] == queue.StatusWaiting {
				return []*queue.Entry{low, high}, nil
			}
			return nil, nil
		},
		ClaimFunc: func(ctx context.Context, id, docID uuid.UUID, room string, at time.Time) (*queue.Entry, error) {
			if id != high.ID {
				t.Errorf("claimed %s, want highest priority %s", id, high.ID)
			}
			claimed := *high
			claimed.Status = queue.StatusInProgress
			claimed.DoctorID = &docID
			claimed.Room = room
			claimed.CalledAt = &at
			return &claimed, nil
		},
		UpdatePositionsFunc: func(ctx context.Context, positions map[uuid.UUID]int) error { return nil },
	}

	svc := newQueueService(queueRepo, &mockVisitRepo{}, &mockPatientRepo{}, staffRepo, &passthroughLocker{})

	claimed, err := svc.CallNext(context.Background(), doctorID, "")
	if err != nil {
		t.Fatalf("CallNext: %v", err)
	}
	if claimed.Status != queue.StatusInProgress {
		t.Errorf("status = %s, want in_progress", claimed.Status)
	}
	if claimed.Room != "R01" {
		t.Errorf("room = %q, want doctor's default R01", claimed.Room)
	}
}

func TestCallNextRetriesAfterLostClaim(t *testing.T) {
	doctorID := uuid.New()
	first := waitingEntry(queue.PriorityHigh, time.Now().Add(-time.Hour))
	second := waitingEntry(queue.PriorityMedium, time.Now().Add(-30*time.Minute))

	attempts := 0
	queueRepo := &mockQueueRepo{
		ListByStatusFunc: func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
			if attempts == 0 {
				return []*queue.Entry{first, second}, nil
			}
			return []*queue.Entry{second}, nil
		},
		ClaimFunc: func(ctx context.Context, id, docID uuid.UUID, room string, at time.Time) (*queue.Entry, error) {
			attempts++
			if attempts == 1 {
				// Another doctor won the first entry.
				return nil, queue.ErrEntryClaimed
			}
			claimed := *second
			claimed.Status = queue.StatusInProgress
			return &claimed, nil
		},
		UpdatePositionsFunc: func(ctx context.Context, positions map[uuid.UUID]int) error { return nil },
	}
	staffRepo := &mockStaffRepo{
		GetDoctorFunc: func(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
			return &domain.Staff{ID: id, Role: domain.RoleDoctor, IsActive: true}, nil
		},
	}

	svc := newQueueService(queueRepo, &mockVisitRepo{}, &mockPatientRepo{}, staffRepo, &passthroughLocker{})

	claimed, err := svc.CallNext(context.Background(), doctorID, "R02")
	if err != nil {
		t.Fatalf("CallNext: %v", err)
	}
	if attempts != 2 {
		t.Errorf("claim attempts = %d, want 2", attempts)
	}
	if claimed.ID != second.ID {
		t.Errorf("claimed %s after retry, want %s", claimed.ID, second.ID)
	}
}

func TestCallNextGivesUpAfterRetriesExhausted(t *testing.T) {
	doctorID := uuid.New()
	entry := waitingEntry(queue.PriorityHigh, time.Now())

	queueRepo := &mockQueueRepo{
		ListByStatusFunc: func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
			return []*queue.Entry{entry}, nil
		},
		ClaimFunc: func(ctx context.Context, id, docID uuid.UUID, room string, at time.Time) (*queue.Entry, error) {
			return nil, queue.ErrEntryClaimed
		},
	}
	staffRepo := &mockStaffRepo{
		GetDoctorFunc: func(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
			return &domain.Staff{ID: id, Role: domain.RoleDoctor, IsActive: true}, nil
		},
	}

	svc := newQueueService(queueRepo, &mockVisitRepo{}, &mockPatientRepo{}, staffRepo, &passthroughLocker{})

	_, err := svc.CallNext(context.Background(), doctorID, "")

	var concErr *ConcurrencyError
	if !errors.As(err, &concErr) {
		t.Fatalf("expected ConcurrencyError, got %v", err)
	}
}

func TestCallNextEmptyQueue(t *testing.T) {
	queueRepo := &mockQueueRepo{
		ListByStatusFunc: func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
			return nil, nil
		},
	}
	staffRepo := &mockStaffRepo{
		GetDoctorFunc: func(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
			return &domain.Staff{ID: id, Role: domain.RoleDoctor, IsActive: true}, nil
		},
	}

	svc := newQueueService(queueRepo, &mockVisitRepo{}, &mockPatientRepo{}, staffRepo, &passthroughLocker{})

	_, err := svc.CallNext(context.Background(), uuid.New(), "")
	if !errors.Is(err, queue.ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestCallNextUnknownDoctor(t *testing.T) {
	staffRepo := &mockStaffRepo{
		GetDoctorFunc: func(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
			return nil, domain.ErrDoctorNotFound
		},
	}

	svc := newQueueService(&mockQueueRepo{}, &mockVisitRepo{}, &mockPatientRepo{}, staffRepo, &passthroughLocker{})

	_, err := svc.CallNext(context.Background(), uuid.New(), "")
	if !errors.Is(err, domain.ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestRemoveFromQueueRequiresReason(t *testing.T) {
	svc := newQueueService(&mockQueueRepo{}, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	_, err := svc.RemoveFromQueue(context.Background(), uuid.New(), "   ")
	if !errors.Is(err, queue.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
}

func TestEstimateWaitUsesConfiguredDefault(t *testing.T) {
	svc := newQueueService(&mockQueueRepo{}, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	mins, err := svc.EstimateWait(3, 0)
	if err != nil {
		t.Fatalf("EstimateWait: %v", err)
	}
	if mins != 45 {
		t.Errorf("estimate = %d, want 45 from configured 15-minute average", mins)
	}
}

func TestEstimateWaitRejectsNegativeAhead(t *testing.T) {
	svc := newQueueService(&mockQueueRepo{}, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	_, err := svc.EstimateWait(-1, 15)

	var validErr *ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTrackVisit(t *testing.T) {
	v := &visit.Visit{ID: uuid.New(), TrackingToken: "tok-123"}
	entry := waitingEntry(queue.PriorityMedium, time.Now())
	entry.VisitID = v.ID
	entry.Position = 3

	visitRepo := &mockVisitRepo{
		GetByTrackingTokenFunc: func(ctx context.Context, token string) (*visit.Visit, error) {
			if token != "tok-123" {
				return nil, visit.ErrVisitNotFound
			}
			return v, nil
		},
	}
	queueRepo := &mockQueueRepo{
		GetByVisitIDFunc: func(ctx context.Context, visitID uuid.UUID) (*queue.Entry, error) {
			return entry, nil
		},
	}

	svc := newQueueService(queueRepo, visitRepo, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	status, err := svc.TrackVisit(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("TrackVisit: %v", err)
	}
	if status.Position != 3 {
		t.Errorf("position = %d, want 3", status.Position)
	}
	// Two patients ahead at 15 minutes each.
	if status.EstimatedWaitMins != 30 {
		t.Errorf("estimate = %d, want 30", status.EstimatedWaitMins)
	}

	if _, err := svc.TrackVisit(context.Background(), "wrong"); !errors.Is(err, visit.ErrVisitNotFound) {
		t.Errorf("expected ErrVisitNotFound for unknown token, got %v", err)
	}
}

func TestQueueBoardRefreshesEstimates(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	first := waitingEntry(queue.PriorityHigh, base)
	first.Position = 1
	second := waitingEntry(queue.PriorityLow, base.Add(10*time.Minute))
	second.Position = 2
	busy := waitingEntry(queue.PriorityHigh, base.Add(-time.Hour))
	busy.Status = queue.StatusInProgress

	queueRepo := &mockQueueRepo{
		ListByStatusFunc: func(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
			return []*queue.Entry{first, second, busy}, nil
		},
		CountByStatusFunc: func(ctx context.Context, status queue.Status) (int64, error) {
			if status == queue.StatusCompleted {
				return 7, nil
			}
			return 0, nil
		},
	}

	svc := newQueueService(queueRepo, &mockVisitRepo{}, &mockPatientRepo{}, &mockStaffRepo{}, &passthroughLocker{})

	board, err := svc.QueueBoard(context.Background())
	if err != nil {
		t.Fatalf("QueueBoard: %v", err)
	}
	if len(board.Waiting) != 2 || len(board.InProgress) != 1 {
		t.Fatalf("board sizes = %d waiting / %d in progress, want 2/1", len(board.Waiting), len(board.InProgress))
	}
	if board.Counts[queue.StatusWaiting] != 2 || board.Counts[queue.StatusInProgress] != 1 || board.Counts[queue.StatusCompleted] != 7 {
		t.Errorf("board counts = %v", board.Counts)
	}
	// Front of queue is still quoted a full consultation interval.
	if board.Waiting[0].EstimatedWaitMins != 15 {
		t.Errorf("front estimate = %d, want 15", board.Waiting[0].EstimatedWaitMins)
	}
	if board.Waiting[1].EstimatedWaitMins != 15 {
		t.Errorf("second estimate = %d, want 15", board.Waiting[1].EstimatedWaitMins)
	}
}
