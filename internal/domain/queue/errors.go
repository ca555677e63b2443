package queue

import (
	"errors"
	"fmt"
)

var (
	ErrEntryNotFound      = errors.New("queue entry not found")
	ErrVisitAlreadyQueued = errors.New("visit already has a queue entry")
	ErrEmptyQueue         = errors.New("no patients waiting in queue")
	ErrEntryClaimed       = errors.New("queue entry was claimed by another caller")
	ErrReasonRequired     = errors.New("a reason is required to remove a patient from the queue")
)

// InvalidTransitionError reports an illegal status change. The entry's
// status is left unchanged when it is returned.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid queue transition from %s to %s", e.From, e.To)
}
