package queue

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/triage"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Priority is fixed at check-in from the triage level and never changes.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// rank orders priorities for position assignment: higher sorts first.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// PriorityFromLevel maps a triage level to a queue priority.
func PriorityFromLevel(l triage.Level) Priority {
	switch l {
	case triage.LevelHigh:
		return PriorityHigh
	case triage.LevelMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Entry is one patient's place in today's physical queue. Exactly one entry
// exists per visit; cancellation is a terminal status, never a row delete.
type Entry struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	VisitID   uuid.UUID  `gorm:"column:visit_id;type:uuid;not null;uniqueIndex"`
	PatientID uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  *uuid.UUID `gorm:"column:doctor_id;type:uuid;index"`
	Room      string     `gorm:"column:room;type:varchar(50)"`

	// Position is meaningful only while status = waiting. Among waiting
	// entries, positions form a contiguous 1..N sequence ordered by
	// (priority desc, check-in time asc).
	Position int      `gorm:"column:position;not null;default:0;index"`
	Status   Status   `gorm:"column:status;type:varchar(20);not null;default:'waiting';index"`
	Priority Priority `gorm:"column:priority;type:varchar(10);not null;index"`

	CheckInTime           time.Time  `gorm:"column:check_in_time;not null;index"`
	CalledAt              *time.Time `gorm:"column:called_at"`
	ConsultationStartedAt *time.Time `gorm:"column:consultation_started_at"`
	ConsultationEndedAt   *time.Time `gorm:"column:consultation_ended_at"`

	EstimatedWaitMins int    `gorm:"column:estimated_wait_mins;not null;default:0"`
	ActualWaitMins    *int   `gorm:"column:actual_wait_mins"`
	Note              string `gorm:"column:note;type:text"`
}

func (Entry) TableName() string {
	return "clinical.queue_entries"
}

// State transition possibilities:
//
//	waiting     → in_progress | cancelled
//	in_progress → completed | cancelled | waiting (return to queue)
//	cancelled   → waiting (re-admission)
//	completed   → (terminal)
var allowedTransitions = map[Status][]Status{
	StatusWaiting:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled, StatusWaiting},
	StatusCancelled:  {StatusWaiting},
	StatusCompleted:  {},
}

func (e *Entry) CanTransitionTo(target Status) bool {
	for _, s := range allowedTransitions[e.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the entry to target at the given instant, applying the
// table's side effects. On an illegal transition the entry is left untouched
// and an InvalidTransitionError is returned.
func (e *Entry) TransitionTo(target Status, at time.Time) error {
	if !e.CanTransitionTo(target) {
		return &InvalidTransitionError{From: e.Status, To: target}
	}

	from := e.Status
	e.Status = target

	switch {
	case from == StatusWaiting && target == StatusInProgress:
		if e.CalledAt == nil {
			called := at
			e.CalledAt = &called
		}
		started := at
		e.ConsultationStartedAt = &started

	case from == StatusInProgress && target == StatusCompleted:
		ended := at
		e.ConsultationEndedAt = &ended
		if e.CalledAt != nil {
			waited := int(e.CalledAt.Sub(e.CheckInTime).Minutes())
			e.ActualWaitMins = &waited
		}

	case from == StatusInProgress && target == StatusWaiting:
		// Returning to the queue clears the consultation assignment.
		e.DoctorID = nil
		e.Room = ""
		e.CalledAt = nil
		e.ConsultationStartedAt = nil
	}

	return nil
}

// SortWaiting orders entries for position assignment: priority high to low,
// then earliest check-in first.
func SortWaiting(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority.rank() != entries[j].Priority.rank() {
			return entries[i].Priority.rank() > entries[j].Priority.rank()
		}
		return entries[i].CheckInTime.Before(entries[j].CheckInTime)
	})
}

// SortForCall orders waiting entries for call-next selection:
// (priority desc, position asc, check-in time asc).
func SortForCall(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority.rank() != entries[j].Priority.rank() {
			return entries[i].Priority.rank() > entries[j].Priority.rank()
		}
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].CheckInTime.Before(entries[j].CheckInTime)
	})
}
