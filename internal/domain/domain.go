package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RoleReceptionist Role = "receptionist"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RoleReceptionist:
		return true
	}
	return false
}

var ErrStaffNotFound = errors.New("staff member not found")

// ErrDoctorNotFound is returned when an ID does not resolve to an active
// doctor-role staff member.
var ErrDoctorNotFound = errors.New("doctor not found or not active")

// Staff is a clinic employee with a login. Doctors are the subset with
// RoleDoctor; queue call-next validates against that subset.
type Staff struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	FirstName    string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName     string `gorm:"column:last_name;type:varchar(100);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	Specialization string `gorm:"column:specialization;type:varchar(100)"`
	Room           string `gorm:"column:room;type:varchar(50)"`

	IsActive         bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil      *time.Time `gorm:"column:locked_until"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
}

func (Staff) TableName() string {
	return "auth.staff"
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (s *Staff) IsLocked() bool {
	return s.LockedUntil != nil && time.Now().Before(*s.LockedUntil)
}

func (s *Staff) IsActiveDoctor() bool {
	return s.Role == RoleDoctor && s.IsActive && s.DeletedAt == nil
}

type StaffRepository interface {
	Create(ctx context.Context, s *Staff) error
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)

	// GetDoctor resolves an ID to an active doctor-role staff member.
	// Returns ErrDoctorNotFound otherwise.
	GetDoctor(ctx context.Context, id uuid.UUID) (*Staff, error)

	UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error
}

type AuditAction string

const (
	ActionCheckIn    AuditAction = "check_in"
	ActionTransition AuditAction = "transition"
	ActionCallNext   AuditAction = "call_next"
	ActionCreate     AuditAction = "create"
	ActionUpdate     AuditAction = "update"
	ActionCancel     AuditAction = "cancel"
	ActionLogin      AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	StaffID   uuid.UUID `gorm:"column:staff_id;type:uuid;index"`
	StaffRole Role      `gorm:"column:staff_role;type:varchar(30)"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	Changes string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	StaffID uuid.UUID `json:"sub"`
	Email   string    `json:"email"`
	Role    Role      `json:"role"`
}
