package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

// Status represents the lifecycle state of a patient record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeceased Status = "deceased"
)

type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"` // Soft delete

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName    string    `gorm:"column:last_name;type:varchar(100);not null"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;not null"`
	Gender      Gender    `gorm:"column:gender;type:varchar(20);not null"`
	NationalID  string    `gorm:"column:national_id;type:varchar(50);uniqueIndex"`

	Phone string `gorm:"column:phone;type:varchar(20);index"`
	Email string `gorm:"column:email;type:varchar(255)"`

	Allergies []string `gorm:"column:allergies;serializer:json"`

	Status           Status     `gorm:"column:status;type:varchar(20);default:'active';index"`
	AssignedDoctorID *uuid.UUID `gorm:"column:assigned_doctor_id;type:uuid;index"`
	Notes            string     `gorm:"column:notes;type:text"` // PHI

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) IsActive() bool {
	return p.Status == StatusActive && p.DeletedAt == nil
}

// UpsertCommand identifies or registers a patient at check-in. When the
// national ID matches an existing record the record is reused.
type UpsertCommand struct {
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	Gender      Gender
	NationalID  string
	Phone       string
	Email       string
	Allergies   []string
	CreatedBy   uuid.UUID
}
