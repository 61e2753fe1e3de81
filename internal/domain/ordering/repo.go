package ordering

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// Update replaces the item selection, option and comments.
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Order, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error)
	// DeleteExpired removes orders whose expiry is at or before cutoff and
	// returns what was removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) ([]*Order, error)
}
