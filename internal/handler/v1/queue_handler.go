package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/queue"
	"github.com/clinicflow/clinicflow/internal/domain/triage"
	"github.com/clinicflow/clinicflow/internal/service"
)

type QueueHandler struct {
	svc *service.QueueService
}

func NewQueueHandler(svc *service.QueueService) *QueueHandler {
	return &QueueHandler{svc: svc}
}

type checkInRequest struct {
	Patient struct {
		FirstName   string    `json:"first_name"`
		LastName    string    `json:"last_name"`
		DateOfBirth time.Time `json:"date_of_birth"`
		Gender      string    `json:"gender"`
		NationalID  string    `json:"national_id"`
		Phone       string    `json:"phone"`
		Email       string    `json:"email"`
		Allergies   []string  `json:"allergies"`
	} `json:"patient"`
	Vitals   triage.Vitals `json:"vitals" binding:"required"`
	Symptoms string        `json:"symptoms"`
	Reason   string        `json:"reason"`
	VisitID  *uuid.UUID    `json:"visit_id"`
}

func (h *QueueHandler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := service.CheckInCommand{
		Vitals:   req.Vitals,
		Symptoms: req.Symptoms,
		Reason:   req.Reason,
		VisitID:  req.VisitID,
		IP:       c.ClientIP(),
	}
	if claims := callerClaims(c); claims != nil {
		cmd.StaffID = claims.StaffID
		cmd.StaffRole = string(claims.Role)
		cmd.Patient.CreatedBy = claims.StaffID
	}
	cmd.Patient.FirstName = req.Patient.FirstName
	cmd.Patient.LastName = req.Patient.LastName
	cmd.Patient.DateOfBirth = req.Patient.DateOfBirth
	cmd.Patient.Gender = patient.Gender(req.Patient.Gender)
	cmd.Patient.NationalID = req.Patient.NationalID
	cmd.Patient.Phone = req.Patient.Phone
	cmd.Patient.Email = req.Patient.Email
	cmd.Patient.Allergies = req.Patient.Allergies

	result, err := h.svc.CheckIn(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, result)
}

type scoreTriageRequest struct {
	Vitals   triage.Vitals `json:"vitals" binding:"required"`
	Symptoms string        `json:"symptoms"`
}

func (h *QueueHandler) ScoreTriage(c *gin.Context) {
	var req scoreTriageRequest
	if !bindJSON(c, &req) {
		return
	}
	respondOK(c, h.svc.ScoreTriage(req.Vitals, req.Symptoms))
}

type estimateWaitRequest struct {
	PatientsAhead     int     `json:"patients_ahead"`
	AvgConsultMinutes float64 `json:"avg_consult_minutes"`
}

func (h *QueueHandler) EstimateWait(c *gin.Context) {
	var req estimateWaitRequest
	if !bindJSON(c, &req) {
		return
	}
	mins, err := h.svc.EstimateWait(req.PatientsAhead, req.AvgConsultMinutes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"estimated_wait_mins": mins})
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

func (h *QueueHandler) Transition(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if !bindJSON(c, &req) {
		return
	}

	target := queue.Status(req.Status)
	if !target.IsValid() {
		respondServiceError(c, &service.ValidationError{Fields: []string{"status is not a valid queue status"}})
		return
	}

	entry, err := h.svc.Transition(c.Request.Context(), id, target, req.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entry)
}

type callNextRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
	Room     string    `json:"room"`
}

func (h *QueueHandler) CallNext(c *gin.Context) {
	var req callNextRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.CallNext(c.Request.Context(), req.DoctorID, req.Room)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entry)
}

type removeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *QueueHandler) Remove(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req removeRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.RemoveFromQueue(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entry)
}

func (h *QueueHandler) Recalculate(c *gin.Context) {
	count, err := h.svc.RecalculatePositions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"updated": count})
}

func (h *QueueHandler) Track(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		respondServiceError(c, &service.ValidationError{Fields: []string{"token is required"}})
		return
	}
	status, err := h.svc.TrackVisit(c.Request.Context(), token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, status)
}

func (h *QueueHandler) Board(c *gin.Context) {
	board, err := h.svc.QueueBoard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, board)
}
