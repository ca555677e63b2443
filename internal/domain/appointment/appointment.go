package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeConsultation   Type = "consultation"
	TypeFollowUp       Type = "follow_up"
	TypeRoutineCheckup Type = "routine_checkup"
	TypeProcedure      Type = "procedure"
	TypeLabResults     Type = "lab_results"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeRoutineCheckup, TypeProcedure, TypeLabResults:
		return true
	}
	return false
}

// State transition possibilities:
//
//	scheduled   → confirmed | checked_in | cancelled
//	confirmed   → checked_in | in_progress | cancelled | no_show
//	checked_in  → in_progress | cancelled
//	in_progress → completed
//	completed, cancelled, no_show → (terminal)
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// ActiveStatuses are the statuses that occupy calendar time and therefore
// participate in conflict detection.
var ActiveStatuses = []Status{StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInProgress}

func (s Status) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Entity-level duration bound. The booking service enforces a stricter
// 15..120 window on top of this; both limits are kept deliberately, see
// DESIGN.md.
const (
	MinDurationMins = 5
	MaxDurationMins = 240
)

type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PatientID uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID  `gorm:"column:doctor_id;type:uuid;not null;index"`
	VisitID   *uuid.UUID `gorm:"column:visit_id;type:uuid;index"`

	ScheduledAt  time.Time `gorm:"column:scheduled_at;not null;index"`
	DurationMins int       `gorm:"column:duration_mins;not null;default:30"`
	Type         Type      `gorm:"column:type;type:varchar(50);not null;index"`
	Status       Status    `gorm:"column:status;type:varchar(30);not null;default:'scheduled';index"`

	Reason string `gorm:"column:reason;type:text"`
	Notes  string `gorm:"column:notes;type:text"`

	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMins) * time.Minute)
}

// Overlaps reports whether the appointment's half-open interval
// [scheduledAt, scheduledAt+duration) intersects [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.ScheduledAt.Before(end) && start.Before(a.EndsAt())
}

var allowedTransitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusCheckedIn, StatusCancelled},
	StatusConfirmed:  {StatusCheckedIn, StatusInProgress, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

func (a *Appointment) CanTransitionTo(target Status) bool {
	for _, s := range allowedTransitions[a.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Cancel marks the appointment cancelled. A reason is mandatory.
func (a *Appointment) Cancel(reason string, at time.Time) error {
	if reason == "" {
		return ErrCancellationReasonRequired
	}
	if !a.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusCancelled
	a.CancelledAt = &at
	a.CancellationReason = reason
	return nil
}

// CheckIn converts the appointment to a visit at the front desk.
func (a *Appointment) CheckIn(visitID uuid.UUID) error {
	if !a.CanTransitionTo(StatusCheckedIn) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusCheckedIn
	a.VisitID = &visitID
	return nil
}

type CreateCommand struct {
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	ScheduledAt  time.Time
	DurationMins int
	Type         Type
	Reason       string
	Notes        string
	CreatedBy    uuid.UUID
}

// RescheduleCommand moves an existing appointment. The service re-runs
// conflict detection with the appointment itself excluded.
type RescheduleCommand struct {
	ScheduledAt  time.Time
	DurationMins int
	UpdatedBy    uuid.UUID
}
