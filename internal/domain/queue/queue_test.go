package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/triage"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusWaiting, StatusInProgress, true},
		{StatusWaiting, StatusCancelled, true},
		{StatusWaiting, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusWaiting, true},
		{StatusCancelled, StatusWaiting, true},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusInProgress, false},
		{StatusCompleted, StatusWaiting, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusCancelled, false},
	}

	for _, tt := range tests {
		e := &Entry{Status: tt.from}
		if got := e.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestTransitionToRejectsIllegalMove(t *testing.T) {
	e := &Entry{Status: StatusCompleted}

	err := e.TransitionTo(StatusWaiting, time.Now())

	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.From != StatusCompleted || transitionErr.To != StatusWaiting {
		t.Errorf("unexpected error detail: %+v", transitionErr)
	}
	if e.Status != StatusCompleted {
		t.Errorf("entry mutated on rejected transition: %s", e.Status)
	}
}

func TestTransitionFullConsultationLifecycle(t *testing.T) {
	checkIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	called := checkIn.Add(25 * time.Minute)
	done := called.Add(20 * time.Minute)

	e := &Entry{Status: StatusWaiting, CheckInTime: checkIn}

	if err := e.TransitionTo(StatusInProgress, called); err != nil {
		t.Fatalf("waiting -> in_progress: %v", err)
	}
	if e.CalledAt == nil || !e.CalledAt.Equal(called) {
		t.Errorf("CalledAt not recorded: %v", e.CalledAt)
	}
	if e.ConsultationStartedAt == nil || !e.ConsultationStartedAt.Equal(called) {
		t.Errorf("ConsultationStartedAt not recorded: %v", e.ConsultationStartedAt)
	}

	if err := e.TransitionTo(StatusCompleted, done); err != nil {
		t.Fatalf("in_progress -> completed: %v", err)
	}
	if e.ConsultationEndedAt == nil || !e.ConsultationEndedAt.Equal(done) {
		t.Errorf("ConsultationEndedAt not recorded: %v", e.ConsultationEndedAt)
	}
	if e.ActualWaitMins == nil || *e.ActualWaitMins != 25 {
		t.Errorf("ActualWaitMins = %v, want 25", e.ActualWaitMins)
	}
}

func TestTransitionReturnToQueueClearsAssignment(t *testing.T) {
	doctorID := uuid.New()
	now := time.Now()

	e := &Entry{Status: StatusWaiting, CheckInTime: now.Add(-10 * time.Minute)}
	if err := e.TransitionTo(StatusInProgress, now); err != nil {
		t.Fatalf("waiting -> in_progress: %v", err)
	}
	e.DoctorID = &doctorID
	e.Room = "R01"

	if err := e.TransitionTo(StatusWaiting, now.Add(time.Minute)); err != nil {
		t.Fatalf("in_progress -> waiting: %v", err)
	}

	if e.DoctorID != nil || e.Room != "" {
		t.Errorf("assignment not cleared: doctor=%v room=%q", e.DoctorID, e.Room)
	}
	if e.CalledAt != nil || e.ConsultationStartedAt != nil {
		t.Errorf("consultation timestamps not cleared")
	}
}

func TestPriorityFromLevel(t *testing.T) {
	tests := []struct {
		level triage.Level
		want  Priority
	}{
		{triage.LevelHigh, PriorityHigh},
		{triage.LevelMedium, PriorityMedium},
		{triage.LevelLow, PriorityLow},
		{triage.Level(""), PriorityLow},
	}

	for _, tt := range tests {
		if got := PriorityFromLevel(tt.level); got != tt.want {
			t.Errorf("PriorityFromLevel(%q) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestSortWaiting(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	lowEarly := &Entry{ID: uuid.New(), Priority: PriorityLow, CheckInTime: base}
	highLate := &Entry{ID: uuid.New(), Priority: PriorityHigh, CheckInTime: base.Add(30 * time.Minute)}
	medMid := &Entry{ID: uuid.New(), Priority: PriorityMedium, CheckInTime: base.Add(15 * time.Minute)}
	highEarly := &Entry{ID: uuid.New(), Priority: PriorityHigh, CheckInTime: base.Add(5 * time.Minute)}

	entries := []*Entry{lowEarly, highLate, medMid, highEarly}
	SortWaiting(entries)

	want := []*Entry{highEarly, highLate, medMid, lowEarly}
	for i, e := range want {
		if entries[i].ID != e.ID {
			t.Fatalf("position %d: got priority=%s checkin=%v, want priority=%s checkin=%v",
				i, entries[i].Priority, entries[i].CheckInTime, e.Priority, e.CheckInTime)
		}
	}
}

func TestSortForCallPrefersPositionWithinPriority(t *testing.T) {
	base := time.Now()

	second := &Entry{ID: uuid.New(), Priority: PriorityHigh, Position: 2, CheckInTime: base}
	first := &Entry{ID: uuid.New(), Priority: PriorityHigh, Position: 1, CheckInTime: base.Add(time.Minute)}
	lowFirst := &Entry{ID: uuid.New(), Priority: PriorityLow, Position: 3, CheckInTime: base.Add(-time.Hour)}

	entries := []*Entry{lowFirst, second, first}
	SortForCall(entries)

	if entries[0].ID != first.ID {
		t.Errorf("expected high-priority position 1 first, got position %d", entries[0].Position)
	}
	if entries[2].ID != lowFirst.ID {
		t.Errorf("expected low priority last despite earliest check-in")
	}
}
