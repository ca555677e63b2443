package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clinicflow/clinicflow/internal/domain/appointment"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// ConflictError carries the overlapping appointments so the caller can
// offer alternatives.
type ConflictError struct {
	Conflicts []*appointment.Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("requested time overlaps %d existing appointment(s)", len(e.Conflicts))
}

// ConcurrencyError signals a lost update detected on claim or recalculation.
// Callers should retry once; persistent failure surfaces as a transient error.
type ConcurrencyError struct {
	Op string
}

func (e *ConcurrencyError) Error() string {
	return "concurrent update detected during " + e.Op + ", please retry"
}
