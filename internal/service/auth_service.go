package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
)

type AuthService struct {
	staffRepo  domain.StaffRepository
	jwtManager *auth.JWTManager
	log        *zap.Logger
}

func NewAuthService(staffRepo domain.StaffRepository, jwtManager *auth.JWTManager, log *zap.Logger) *AuthService {
	return &AuthService{staffRepo: staffRepo, jwtManager: jwtManager, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	staff, err := s.staffRepo.GetByEmail(ctx, email)
	if err != nil {
		// Use bcrypt dummy hash to prevent timing-based user enumeration.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !staff.IsActive {
		return nil, ErrAccountInactive
	}
	if staff.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		if updErr := s.staffRepo.UpdateLoginAttempt(ctx, staff.ID, false); updErr != nil {
			s.log.Error("failed to record failed login", zap.Error(updErr))
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.staffRepo.UpdateLoginAttempt(ctx, staff.ID, true); err != nil {
		s.log.Error("failed to record successful login", zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(&domain.Claims{
		StaffID: staff.ID,
		Email:   staff.Email,
		Role:    staff.Role,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("staff login",
		zap.String("staff_id", staff.ID.String()),
		zap.String("role", string(staff.Role)),
		zap.String("ip", ip),
	)

	return pair, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	staff, err := s.staffRepo.GetByID(ctx, claims.StaffID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !staff.IsActive {
		return nil, ErrAccountInactive
	}

	return s.jwtManager.GenerateTokenPair(&domain.Claims{
		StaffID: staff.ID,
		Email:   staff.Email,
		Role:    staff.Role,
	})
}
