package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/appointment"
	"github.com/clinicflow/clinicflow/internal/service"
)

type AppointmentHandler struct {
	svc *service.AppointmentService
}

func NewAppointmentHandler(svc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

type createAppointmentRequest struct {
	PatientID    uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID     uuid.UUID `json:"doctor_id" binding:"required"`
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
	DurationMins int       `json:"duration_mins" binding:"required"`
	Type         string    `json:"type" binding:"required"`
	Reason       string    `json:"reason"`
	Notes        string    `json:"notes"`
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.CreateCommand{
		PatientID:    req.PatientID,
		DoctorID:     req.DoctorID,
		ScheduledAt:  req.ScheduledAt,
		DurationMins: req.DurationMins,
		Type:         appointment.Type(req.Type),
		Reason:       req.Reason,
		Notes:        req.Notes,
	}

	var callerID uuid.UUID
	var callerRole string
	if claims := callerClaims(c); claims != nil {
		callerID = claims.StaffID
		callerRole = string(claims.Role)
		cmd.CreatedBy = claims.StaffID
	}

	a, err := h.svc.Create(c.Request.Context(), cmd, callerID, callerRole, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

type rescheduleRequest struct {
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
	DurationMins int       `json:"duration_mins" binding:"required"`
}

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Reschedule(c.Request.Context(), id, &appointment.RescheduleCommand{
		ScheduledAt:  req.ScheduledAt,
		DurationMins: req.DurationMins,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) Confirm(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Confirm(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

type cancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req cancelAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	var callerID uuid.UUID
	var callerRole string
	if claims := callerClaims(c); claims != nil {
		callerID = claims.StaffID
		callerRole = string(claims.Role)
	}

	a, err := h.svc.Cancel(c.Request.Context(), id, req.Reason, callerID, callerRole, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.MarkNoShow(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) CheckIn(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.CheckIn(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, v)
}

func (h *AppointmentHandler) ListByPatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	limit := parseQueryInt(c, "limit", 20)

	appointments, err := h.svc.ListByPatient(c.Request.Context(), id, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appointments)
}

func (h *AppointmentHandler) ListUpcoming(c *gin.Context) {
	hours := parseQueryInt(c, "hours", 24)

	appointments, err := h.svc.ListUpcoming(c.Request.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appointments)
}

type availabilityRequest struct {
	DoctorID     uuid.UUID  `json:"doctor_id" binding:"required"`
	ScheduledAt  time.Time  `json:"scheduled_at" binding:"required"`
	DurationMins int        `json:"duration_mins" binding:"required"`
	ExcludeID    *uuid.UUID `json:"exclude_id"`
}

func (h *AppointmentHandler) CheckAvailability(c *gin.Context) {
	var req availabilityRequest
	if !bindJSON(c, &req) {
		return
	}

	avail, err := h.svc.CheckAvailability(c.Request.Context(), req.DoctorID, req.ScheduledAt, req.DurationMins, req.ExcludeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, avail)
}
