package facility

import (
	"context"

	"github.com/google/uuid"
)

type UnitRepository interface {
	Create(ctx context.Context, u *Unit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	Update(ctx context.Context, u *Unit) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Unit, int, error)
}

type RoomRepository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	// Update changes the room number only; the owning unit is fixed.
	Update(ctx context.Context, r *Room) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, unitID uuid.UUID, limit, offset int) ([]*Room, int, error)
	// CountOutside counts the unit's rooms numbered outside [start, end].
	CountOutside(ctx context.Context, unitID uuid.UUID, start, end int) (int, error)
}
