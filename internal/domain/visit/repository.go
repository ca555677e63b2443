package visit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error

	// GetByID retrieves a visit by primary key. Returns ErrVisitNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)

	// GetByTrackingToken resolves the token handed out at check-in.
	GetByTrackingToken(ctx context.Context, token string) (*Visit, error)

	Update(ctx context.Context, v *Visit) error
}
