package catalog

import (
	"context"

	"github.com/google/uuid"
)

type DietRepository interface {
	Create(ctx context.Context, d *Diet) error
	GetByID(ctx context.Context, id uuid.UUID) (*Diet, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*Diet, error)
	Update(ctx context.Context, d *Diet) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Diet, int, error)
}

type ProductionAreaRepository interface {
	Create(ctx context.Context, a *ProductionArea) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProductionArea, error)
	GetByName(ctx context.Context, name string) (*ProductionArea, error)
	Update(ctx context.Context, a *ProductionArea) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*ProductionArea, int, error)
}

type MenuItemRepository interface {
	Create(ctx context.Context, m *MenuItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	// GetMany returns the items that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*MenuItem, error)
	Update(ctx context.Context, m *MenuItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ItemFilter, limit, offset int) ([]*MenuItem, int, error)
}
