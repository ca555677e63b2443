package visit

import (
	"time"

	"github.com/google/uuid"
)

// Visit is one patient encounter at the clinic, created at check-in.
// Walk-ins get a fresh visit; booked patients get a visit linked to their
// appointment when the appointment is converted at the front desk.
type Visit struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PatientID     uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	AppointmentID *uuid.UUID `gorm:"column:appointment_id;type:uuid;index"`

	Reason   string `gorm:"column:reason;type:text"`
	Symptoms string `gorm:"column:symptoms;type:text"`

	// TrackingToken lets the patient follow their queue status anonymously
	// (e.g. on the waiting-room display) without exposing the visit ID.
	TrackingToken string `gorm:"column:tracking_token;type:varchar(64);uniqueIndex;not null"`

	StartedAt time.Time  `gorm:"column:started_at;not null"`
	EndedAt   *time.Time `gorm:"column:ended_at"`
}

func (Visit) TableName() string {
	return "clinical.visits"
}

func (v *Visit) IsOpen() bool {
	return v.EndedAt == nil
}

func (v *Visit) End(at time.Time) {
	if v.EndedAt == nil {
		ended := at
		v.EndedAt = &ended
	}
}
