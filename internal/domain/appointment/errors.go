package appointment

import "errors"

var (
	ErrAppointmentNotFound        = errors.New("appointment not found")
	ErrInvalidStatusTransition    = errors.New("invalid appointment status transition")
	ErrScheduledInPast            = errors.New("appointment must be scheduled in the future")
	ErrOutsideBusinessHours       = errors.New("appointment must start within business hours")
	ErrInsufficientLeadTime       = errors.New("appointment must be booked at least one hour ahead")
	ErrInvalidDuration            = errors.New("appointment duration must be between 5 and 240 minutes")
	ErrDurationOutsideService     = errors.New("appointment duration must be between 15 and 120 minutes")
	ErrInvalidAppointmentType     = errors.New("invalid appointment type")
	ErrCancellationReasonRequired = errors.New("a cancellation reason is required")
)
