package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/internal/domain/appointment"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/queue"
	"github.com/clinicflow/clinicflow/internal/domain/triage"
	"github.com/clinicflow/clinicflow/internal/domain/visit"
	"github.com/clinicflow/clinicflow/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

type ConflictResponse struct {
	Error     string                     `json:"error"`
	Conflicts []*appointment.Appointment `json:"conflicts"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ConflictResponse{
			Error:     conflictErr.Error(),
			Conflicts: conflictErr.Conflicts,
		})
		return
	}

	var transitionErr *queue.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: transitionErr.Error(),
			Code:  "INVALID_TRANSITION",
		})
		return
	}

	var concurrencyErr *service.ConcurrencyError
	if errors.As(err, &concurrencyErr) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: concurrencyErr.Error(),
			Code:  "CONCURRENT_UPDATE",
		})
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, queue.ErrEntryNotFound),
		errors.Is(err, visit.ErrVisitNotFound),
		errors.Is(err, domain.ErrStaffNotFound),
		errors.Is(err, domain.ErrDoctorNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, queue.ErrVisitAlreadyQueued),
		errors.Is(err, patient.ErrPatientAlreadyExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, queue.ErrEmptyQueue):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "EMPTY_QUEUE"})

	case errors.Is(err, appointment.ErrScheduledInPast),
		errors.Is(err, appointment.ErrOutsideBusinessHours),
		errors.Is(err, appointment.ErrInsufficientLeadTime),
		errors.Is(err, appointment.ErrInvalidDuration),
		errors.Is(err, appointment.ErrDurationOutsideService),
		errors.Is(err, appointment.ErrInvalidStatusTransition),
		errors.Is(err, appointment.ErrInvalidAppointmentType),
		errors.Is(err, appointment.ErrCancellationReasonRequired),
		errors.Is(err, queue.ErrReasonRequired),
		errors.Is(err, patient.ErrPatientInactive),
		errors.Is(err, triage.ErrNegativePatientsAhead),
		errors.Is(err, triage.ErrNonPositiveConsult):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
