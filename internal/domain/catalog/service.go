package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/platform/apperr"
	"github.com/nutritrack/dietary/internal/platform/db"
	"github.com/nutritrack/dietary/pkg/expand"
)

const (
	msgNoDiet     = "No diet was found with that ID"
	msgNoArea     = "No production area was found with that ID"
	msgNoItem     = "No menu item was found with that ID"
	msgNoDiets    = "One or more diets were not found with the provided ID(s)"
)

// Expansions accepted on menu item reads.
var ItemExpansions = []string{"diets", "production_area"}

type Service struct {
	diets DietRepository
	areas ProductionAreaRepository
	items MenuItemRepository
}

func NewService(d DietRepository, a ProductionAreaRepository, i MenuItemRepository) *Service {
	return &Service{diets: d, areas: a, items: i}
}

// -- Diet --

func (s *Service) CreateDiet(ctx context.Context, d *Diet) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := s.diets.Create(ctx, d); err != nil {
		return db.MapError(err, msgNoDiet)
	}
	return nil
}

func (s *Service) GetDiet(ctx context.Context, id uuid.UUID) (*Diet, error) {
	d, err := s.diets.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoDiet)
	}
	return d, nil
}

func (s *Service) UpdateDiet(ctx context.Context, d *Diet) error {
	existing, err := s.GetDiet(ctx, d.ID)
	if err != nil {
		return err
	}
	if d.Name != "" && d.Name != existing.Name {
		return apperr.Validationf("A diet name cannot be changed once created")
	}
	d.Name = existing.Name
	if err := d.Validate(); err != nil {
		return err
	}
	if err := s.diets.Update(ctx, d); err != nil {
		return db.MapError(err, msgNoDiet)
	}
	return nil
}

func (s *Service) DeleteDiet(ctx context.Context, id uuid.UUID) error {
	return db.MapDeleteError(s.diets.Delete(ctx, id), msgNoDiet, "diet")
}

func (s *Service) ListDiets(ctx context.Context, limit, offset int) ([]*Diet, int, error) {
	return s.diets.List(ctx, limit, offset)
}

// ResolveDiets loads every diet in ids, failing with ReferenceNotFound if
// any is missing.
func (s *Service) ResolveDiets(ctx context.Context, ids []uuid.UUID) ([]*Diet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	diets, err := s.diets.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load diets: %w", err)
	}
	if len(diets) != len(uniqueIDs(ids)) {
		return nil, apperr.New(apperr.ReferenceNotFound, msgNoDiets)
	}
	return diets, nil
}

// -- Production Area --

func (s *Service) CreateProductionArea(ctx context.Context, a *ProductionArea) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.areas.Create(ctx, a); err != nil {
		return db.MapError(err, msgNoArea)
	}
	return nil
}

func (s *Service) GetProductionArea(ctx context.Context, id uuid.UUID) (*ProductionArea, error) {
	a, err := s.areas.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoArea)
	}
	return a, nil
}

func (s *Service) UpdateProductionArea(ctx context.Context, a *ProductionArea) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.areas.Update(ctx, a); err != nil {
		return db.MapError(err, msgNoArea)
	}
	return nil
}

func (s *Service) DeleteProductionArea(ctx context.Context, id uuid.UUID) error {
	return db.MapDeleteError(s.areas.Delete(ctx, id), msgNoArea, "production area")
}

func (s *Service) ListProductionAreas(ctx context.Context, limit, offset int) ([]*ProductionArea, int, error) {
	return s.areas.List(ctx, limit, offset)
}

// -- Menu Item --

// prepareMenuItem is the pre-write step for menu items: normalize, check
// field rules, then confirm the production area and every diet exist.
func (s *Service) prepareMenuItem(ctx context.Context, m *MenuItem) error {
	m.Normalize()
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := s.areas.GetByID(ctx, m.ProductionAreaID); err != nil {
		if db.IsNoRows(err) {
			return apperr.New(apperr.ReferenceNotFound, msgNoArea)
		}
		return fmt.Errorf("load production area: %w", err)
	}
	diets, err := s.ResolveDiets(ctx, m.DietIDs)
	if err != nil {
		return err
	}
	m.DietNames = make([]string, len(diets))
	for i, d := range diets {
		m.DietNames[i] = d.Name
	}
	return nil
}

func (s *Service) CreateMenuItem(ctx context.Context, m *MenuItem) error {
	if err := s.prepareMenuItem(ctx, m); err != nil {
		return err
	}
	if err := s.items.Create(ctx, m); err != nil {
		return db.MapError(err, msgNoItem)
	}
	return nil
}

func (s *Service) GetMenuItem(ctx context.Context, id uuid.UUID, exp expand.Set) (*MenuItem, error) {
	m, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoItem)
	}
	if err := s.expandItems(ctx, []*MenuItem{m}, exp); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, m *MenuItem) error {
	if err := s.prepareMenuItem(ctx, m); err != nil {
		return err
	}
	if err := s.items.Update(ctx, m); err != nil {
		return db.MapError(err, msgNoItem)
	}
	return nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	return db.MapDeleteError(s.items.Delete(ctx, id), msgNoItem, "menu item")
}

func (s *Service) ListMenuItems(ctx context.Context, f ItemFilter, limit, offset int, exp expand.Set) ([]*MenuItem, int, error) {
	items, total, err := s.items.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.expandItems(ctx, items, exp); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetMenuItems returns the items that exist among ids. Callers compare
// lengths to detect missing references.
func (s *Service) GetMenuItems(ctx context.Context, ids []uuid.UUID) ([]*MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	items, err := s.items.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	return items, nil
}

func (s *Service) expandItems(ctx context.Context, items []*MenuItem, exp expand.Set) error {
	if exp.Empty() || len(items) == 0 {
		return nil
	}
	if exp.Has("diets") {
		var ids []uuid.UUID
		for _, m := range items {
			ids = append(ids, m.DietIDs...)
		}
		diets, err := s.diets.GetMany(ctx, uniqueIDs(ids))
		if err != nil {
			return fmt.Errorf("expand diets: %w", err)
		}
		byID := make(map[uuid.UUID]*Diet, len(diets))
		for _, d := range diets {
			byID[d.ID] = d
		}
		for _, m := range items {
			m.Diets = make([]*Diet, 0, len(m.DietIDs))
			for _, id := range m.DietIDs {
				if d, ok := byID[id]; ok {
					m.Diets = append(m.Diets, d)
				}
			}
		}
	}
	if exp.Has("production_area") {
		areas := map[uuid.UUID]*ProductionArea{}
		for _, m := range items {
			a, ok := areas[m.ProductionAreaID]
			if !ok {
				var err error
				a, err = s.areas.GetByID(ctx, m.ProductionAreaID)
				if err != nil && !db.IsNoRows(err) {
					return fmt.Errorf("expand production area: %w", err)
				}
				areas[m.ProductionAreaID] = a
			}
			m.ProductionArea = a
		}
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
