package triage

import (
	"errors"
	"math"
)

// DefaultAvgConsultMinutes is used when the clinic has no configured average.
const DefaultAvgConsultMinutes = 15

var (
	ErrNegativePatientsAhead = errors.New("patients ahead cannot be negative")
	ErrNonPositiveConsult    = errors.New("average consultation time must be positive")
)

// EstimateWait returns the quoted wait in minutes for a patient with the
// given number of waiting patients ahead of them. Even the front-of-queue
// patient is quoted at least one consultation interval, never zero.
func EstimateWait(patientsAhead int, avgConsultMinutes float64) (int, error) {
	if patientsAhead < 0 {
		return 0, ErrNegativePatientsAhead
	}
	if avgConsultMinutes <= 0 {
		return 0, ErrNonPositiveConsult
	}

	minutes := math.Max(float64(patientsAhead)*avgConsultMinutes, avgConsultMinutes)
	return int(math.Round(minutes)), nil
}
