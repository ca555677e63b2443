package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicflow/clinicflow/internal/domain"
)

const maxFailedAttempts = 5

const lockDuration = 15 * time.Minute

type StaffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) Create(ctx context.Context, s *domain.Staff) error {
	return dbFrom(ctx, r.db).Create(s).Error
}

func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	var s domain.Staff
	err := dbFrom(ctx, r.db).First(&s, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	var s domain.Staff
	err := dbFrom(ctx, r.db).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StaffRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	var s domain.Staff
	err := dbFrom(ctx, r.db).
		First(&s, "id = ? AND role = ? AND is_active = true", id, domain.RoleDoctor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StaffRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	db := dbFrom(ctx, r.db)

	if success {
		return db.Model(&domain.Staff{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"failed_login_count": 0,
				"locked_until":       nil,
				"last_login_at":      time.Now(),
			}).Error
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var s domain.Staff
		if err := tx.First(&s, "id = ?", id).Error; err != nil {
			return err
		}

		s.FailedLoginCount++
		updates := map[string]any{"failed_login_count": s.FailedLoginCount}
		if s.FailedLoginCount >= maxFailedAttempts {
			updates["locked_until"] = time.Now().Add(lockDuration)
		}

		return tx.Model(&domain.Staff{}).Where("id = ?", id).Updates(updates).Error
	})
}
