package menu

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Menu) error
	GetByID(ctx context.Context, id uuid.UUID) (*Menu, error)
	Update(ctx context.Context, m *Menu) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Menu, int, error)
	// FindDefault returns the menu serving dietID for the day, meal period
	// and option. An empty option prefers Hot over Cold.
	FindDefault(ctx context.Context, dietID uuid.UUID, day, mealPeriod, option string) (*Menu, error)
}
