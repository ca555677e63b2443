package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new entry. Returns ErrVisitAlreadyQueued if the
	// visit is already in the queue.
	Create(ctx context.Context, e *Entry) error

	// GetByID retrieves an entry by primary key. Returns ErrEntryNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetByVisitID retrieves the entry for a visit, if one exists.
	GetByVisitID(ctx context.Context, visitID uuid.UUID) (*Entry, error)

	// ListByStatus returns entries in any of the given statuses, ordered by
	// check-in time ascending.
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Entry, error)

	// CountByStatus returns how many entries are currently in the status.
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// Update persists the full entry state.
	Update(ctx context.Context, e *Entry) error

	// UpdatePositions writes new positions for the given entries in one statement
	// batch. Entries not present in the map keep their stored position.
	UpdatePositions(ctx context.Context, positions map[uuid.UUID]int) error

	// Claim atomically moves a waiting entry to in_progress and assigns the
	// doctor and room. The claim succeeds only if the entry is still waiting
	// at write time; otherwise ErrEntryClaimed is returned so the caller can
	// re-select.
	Claim(ctx context.Context, id, doctorID uuid.UUID, room string, at time.Time) (*Entry, error)
}
